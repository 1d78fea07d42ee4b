package citaprevia

import (
	"net/url"
	"strings"
)

const (
	DefaultBaseUrl   = "https://servpub.madrid.es/GNSIS_WBCIUDADANO/"
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:141.0) Gecko/20100101 Firefox/141.0"
)

// paths relative to the base url
const (
	pathAnonymousAuth      = "AjaxPantallaAcceso"
	pathClosestOffice      = "oficinaCitaProxima.do"
	pathOfficeAppointments = "horarioOficina.do"
	pathDaySlots           = "huecosDia.do"
	pathProcedureLanding   = "tramite.do"
	pathOfficeLanding      = "oficina.do"
	pathOfficeInfo         = "dameOficina.do"
)

// ids of the <select> elements on the landing pages
const (
	selectOffices    = "selectOficinas"
	selectProcedures = "selectTramites"
)

type endpoints struct {
	base               *url.URL
	landing            string
	anonymousAuth      string
	closestOffice      string
	officeAppointments string
	daySlots           string
	procedureLanding   string
	officeLanding      string
	officeInfo         string
}

func resolveEndpoints(baseUrl string) (endpoints, error) {
	// without the trailing slash the last path segment would be replaced when resolving
	if !strings.HasSuffix(baseUrl, "/") {
		baseUrl += "/"
	}
	base, err := url.Parse(baseUrl)
	if err != nil {
		return endpoints{}, err
	}

	resolve := func(path string) string {
		return base.ResolveReference(&url.URL{Path: path}).String()
	}

	return endpoints{
		base:               base,
		landing:            base.String(),
		anonymousAuth:      resolve(pathAnonymousAuth),
		closestOffice:      resolve(pathClosestOffice),
		officeAppointments: resolve(pathOfficeAppointments),
		daySlots:           resolve(pathDaySlots),
		procedureLanding:   resolve(pathProcedureLanding),
		officeLanding:      resolve(pathOfficeLanding),
		officeInfo:         resolve(pathOfficeInfo),
	}, nil
}
