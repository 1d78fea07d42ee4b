package commands

import (
	"fmt"
	"strings"
	"time"

	"citaprevia/internal/citaprevia"
	"citaprevia/internal/components/chrono"
	"citaprevia/internal/finder"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newClosestOfficeCmd(a *app) *cobra.Command {
	var procedureId uint32

	cmd := &cobra.Command{
		Use:   "closest-office --procedure-id <id>",
		Short: "Prints the office with the nearest opening for a procedure.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			procedure, ok := c.Procedure(citaprevia.ProcedureId(procedureId))
			if !ok {
				return fmt.Errorf("unknown procedure: %d", procedureId)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Selected procedure:", procedure.Name)

			client, err := a.client()
			if err != nil {
				return err
			}
			office, err := client.ClosestOffice(cmd.Context(), procedure.Id)
			if err != nil {
				return err
			}
			if office == nil {
				return quietUnsatisfied
			}
			fmt.Fprintln(a.out, office.Name)
			return nil
		},
	}
	cmd.Flags().Uint32VarP(&procedureId, "procedure-id", "p", 0, "The procedure to find an office for.")
	cmd.MarkFlagRequired("procedure-id")
	return cmd
}

func newOfficeDetailCmd(a *app) *cobra.Command {
	var officeId uint32

	cmd := &cobra.Command{
		Use:   "office-detail --office-id <id>",
		Short: "Fetches the live detail record of an office.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			office, err := client.OfficeDetail(cmd.Context(), citaprevia.OfficeId(officeId))
			if err != nil {
				return err
			}
			if office == nil {
				return unsatisfied("office %d is unknown to the appointment system", officeId)
			}

			fmt.Fprintf(a.out, "%s (%d)\n", office.Name, office.Id)
			fmt.Fprintf(a.out, "%s, %s (%s)\n", office.Address, office.DistrictName, office.DistrictCode)
			if office.InformationUrl != "" {
				fmt.Fprintln(a.out, office.InformationUrl)
			}

			t := newTable(a.out)
			t.AppendHeader(table.Row{"Procedure ID", "Procedure Office ID", "Category", "Name"})
			for _, p := range office.Procedures {
				t.AppendRow(table.Row{p.ProcedureId, p.ProcedureOfficeId, p.Category, p.Name})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().Uint32VarP(&officeId, "office-id", "o", 0, "The office to fetch.")
	cmd.MarkFlagRequired("office-id")
	return cmd
}

type searchFlags struct {
	procedureId uint32
	officeId    uint32
	group       string
	slots       bool
	concurrency int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint32VarP(&f.procedureId, "procedure-id", "p", 0, "Fetch appointments for this procedure.")
	cmd.Flags().Uint32VarP(&f.officeId, "office-id", "o", 0, "Search only on this office.")
	cmd.Flags().StringVarP(&f.group, "office-group", "g", "", "Search only in the offices within the given group.")
	cmd.Flags().BoolVarP(&f.slots, "slots", "s", false, "Fetch also slots for each day found to have appointments.")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "How many offices to query at once, defaults to the configured value.")
	cmd.MarkFlagRequired("procedure-id")
}

func (f *searchFlags) query(a *app) finder.Query {
	concurrency := f.concurrency
	if concurrency <= 0 {
		concurrency = a.config.Concurrency
	}
	return finder.Query{
		ProcedureId: citaprevia.ProcedureId(f.procedureId),
		OfficeId:    citaprevia.OfficeId(f.officeId),
		Group:       f.group,
		WithSlots:   f.slots,
		Concurrency: concurrency,
	}
}

func (a *app) finder() (finder.Finder, error) {
	c, err := a.loadCatalog()
	if err != nil {
		return finder.Finder{}, err
	}
	client, err := a.client()
	if err != nil {
		return finder.Finder{}, err
	}
	return finder.New(c, client, a.tel), nil
}

type jsonDay struct {
	Day citaprevia.AppointmentDay `json:"day"`
	// Slots is null unless slots were requested.
	Slots []int64 `json:"slots"`
}

type jsonOffice struct {
	OfficeId   citaprevia.OfficeId `json:"office_id"`
	OfficeName string              `json:"office_name"`
}

type jsonOfficeAppointments struct {
	Office       jsonOffice `json:"office"`
	Appointments []jsonDay  `json:"appointments"`
}

type jsonResult struct {
	AppointmentsByOffice []jsonOfficeAppointments `json:"appointments_by_office"`
}

func toJsonResult(res finder.Result) jsonResult {
	out := jsonResult{AppointmentsByOffice: make([]jsonOfficeAppointments, len(res.Offices))}
	for i, o := range res.Offices {
		days := make([]jsonDay, len(o.Days))
		for j, d := range o.Days {
			days[j] = jsonDay{Day: d.Day}
			if d.Slots != nil {
				days[j].Slots = make([]int64, len(d.Slots))
				for k, slot := range d.Slots {
					days[j].Slots[k] = slot.Unix()
				}
			}
		}
		out.AppointmentsByOffice[i] = jsonOfficeAppointments{
			Office:       jsonOffice{OfficeId: o.Office.Id, OfficeName: o.Office.Name},
			Appointments: days,
		}
	}
	return out
}

func formatOfficeAppointments(o finder.OfficeAppointments, withSlots bool) string {
	var items []string
	for _, d := range o.Days {
		if !withSlots {
			items = append(items, d.Day.String())
			continue
		}
		for _, slot := range d.Slots {
			items = append(items, slot.In(chrono.Madrid()).Format(time.RFC3339))
		}
	}
	return fmt.Sprintf("%s: [%s]", o.Office.Name, strings.Join(items, ", "))
}

func newAppointmentsCmd(a *app) *cobra.Command {
	var flags searchFlags
	var asJson bool

	cmd := &cobra.Command{
		Use:   "appointments --procedure-id <id> [--office-id <id>] [--office-group <group>] [--slots] [--json]",
		Short: "Lists the days (and optionally slots) with open appointments in every office offering a procedure.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.finder()
			if err != nil {
				return err
			}
			res, err := f.Search(cmd.Context(), flags.query(a))
			if err != nil {
				return err
			}

			if asJson {
				enc := json.NewEncoder(a.out)
				err = enc.Encode(toJsonResult(res))
				if err != nil {
					return err
				}
				if !res.Found() {
					return quietUnsatisfied
				}
				return nil
			}

			for _, o := range res.Offices {
				fmt.Fprintln(a.out, formatOfficeAppointments(o, flags.slots))
			}
			if !res.Found() {
				return unsatisfied("no appointments found in any of the filtered offices")
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJson, "json", false, "Print all the results at once in JSON format.")
	return cmd
}
