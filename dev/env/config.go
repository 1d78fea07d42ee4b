package devenv

// LiveTestConfig enables the tests that talk to the real appointment system,
// they are skipped unless dev/.state/live_test.json5 exists.
type LiveTestConfig struct {
	BaseUrl     string `json:"base_url"`
	ProcedureId uint32 `json:"procedure_id"`
	OfficeId    uint32 `json:"office_id"`
}
