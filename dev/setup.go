package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const cliConfigTemplate = `{
  // every field is optional, missing ones take the built in defaults.
  // base_url: "https://servpub.madrid.es/GNSIS_WBCIUDADANO/",
  rate_limit: 2,
  timeout_seconds: 30,
  catalog_path: "<dev_state>/catalog.json",
  // dump_dir: "<dev_state>/dumps",
  concurrency: 4,
  watch_schedule: "*/10 7-22 * * *",
  // smtp: {
  //   server: "smtp.example.com",
  //   port: 587,
  //   email_address: "me@example.com",
  //   password: "",
  // },
  // notify_to: ["me@example.com"],
}
`

const liveTestTemplate = `{
  // rename this file to live_test.json5 to run the tests against the real appointment system.
  base_url: "https://servpub.madrid.es/GNSIS_WBCIUDADANO/",
  procedure_id: 0,
  office_id: 0,
}
`

func writeTemplate(path, contents string) error {
	_, err := os.Stat(path)
	if err == nil {
		fmt.Println("config already created at", path)
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}

	fmt.Println("creating config at", path)
	return os.WriteFile(path, []byte(contents), 0666)
}

func WriteTemplates(root, state string) error {
	err := writeTemplate(filepath.Join(root, "citaprevia.json5"), cliConfigTemplate)
	if err != nil {
		return err
	}
	return writeTemplate(filepath.Join(state, "live_test.json5.example"), liveTestTemplate)
}

func PrintConfigLocations(root, state string) {
	slog.Info(
		"live tests are skipped until dev/.state/live_test.json5 exists, run `go test -v ./...` to see which ones were skipped.",
		"cli_config", filepath.Join(root, "citaprevia.json5"),
		"state", state,
	)
}
