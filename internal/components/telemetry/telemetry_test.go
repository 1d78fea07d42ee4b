package telemetry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("citaprevia", NewScopedAPI("client", rec))

	scoped.ReportBroken("list-offices", "boom")
	scoped.ReportDebug("request")
	scoped.ReportCount("slots", 3)

	broken := rec.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "client: citaprevia: list-offices", broken[0].Id)
	require.Equal(t, []any{"boom"}, broken[0].Params)

	require.True(t, rec.Broken("list-offices"))
	require.False(t, rec.Broken("list-procedures"))
	require.Len(t, rec.Reports(""), 3)
}

type memoryOutput struct {
	transcripts map[string]string
}

func (m memoryOutput) Write(id string, contents string) {
	m.transcripts[id] = contents
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/huecosDia.do" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "secret-session"})
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hola"))
	}))
	defer server.Close()

	rec := &Recorder{}
	out := memoryOutput{transcripts: map[string]string{}}

	client := resty.New()
	InstrumentResty(client, rec, out)

	_, err := client.R().Get(server.URL + "/oficina.do")
	require.NoError(t, err)
	_, err = client.R().
		SetHeader("Cookie", "JSESSIONID=secret-session").
		SetFormData(map[string]string{"idOficina": "128"}).
		Post(server.URL + "/dameOficina.do")
	require.NoError(t, err)

	debug := rec.Reports("debug")
	require.Len(t, debug, 4)
	require.Equal(t, report_resty_request, debug[0].Id)
	require.Equal(t, report_resty_response, debug[1].Id)
	require.Empty(t, rec.Reports("warning"))

	traces := rec.Reports("trace")
	require.Len(t, traces, 2)
	require.Equal(t, "hola", traces[0].Params[1])

	require.Len(t, out.transcripts, 2)
	require.Contains(t, out.transcripts["0001-oficina.do"], "> GET "+server.URL+"/oficina.do")
	require.Contains(t, out.transcripts["0002-dameOficina.do"], "idOficina=128")
	for _, transcript := range out.transcripts {
		require.NotContains(t, transcript, "secret-session")
		require.Contains(t, transcript, "<redacted>")
	}

	res, err := client.R().Get(server.URL + "/huecosDia.do")
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode())
	warnings := rec.Reports("warning")
	require.Len(t, warnings, 1)
	require.Equal(t, report_resty_status, warnings[0].Id)
	require.Equal(t, "huecosDia.do", warnings[0].Params[0])
}

func TestEndpointOf(t *testing.T) {
	require.Equal(t, "huecosDia.do", endpointOf("https://servpub.madrid.es/GNSIS_WBCIUDADANO/huecosDia.do?fecha=01/02/2026"))
	require.Equal(t, "GNSIS_WBCIUDADANO", endpointOf("https://servpub.madrid.es/GNSIS_WBCIUDADANO/"))
	require.Equal(t, "https://servpub.madrid.es", endpointOf("https://servpub.madrid.es"))
}

func TestInstrumentRestyError(t *testing.T) {
	rec := &Recorder{}
	client := resty.New()
	InstrumentResty(client, rec, nil)

	_, err := client.R().Get("http://127.0.0.1:1/unreachable")
	require.Error(t, err)
	require.True(t, rec.Broken(report_resty_response))
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	out, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	out.Write("7", "contents")

	contents, err := os.ReadFile(filepath.Join(dir, "7.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(contents))
}
