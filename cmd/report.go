package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/publicartatlas/artimport/internal/importer"
	"github.com/publicartatlas/artimport/internal/model"
)

var reportCmd = &cobra.Command{
	Use:   "report <report.json>",
	Short: "Render a saved run report as text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("report"); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read report %s", args[0])
		}
		var report model.ImportRunReport
		if err := json.Unmarshal(data, &report); err != nil {
			return eris.Wrapf(err, "parse report %s", args[0])
		}
		fmt.Println(importer.RenderText(&report))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
