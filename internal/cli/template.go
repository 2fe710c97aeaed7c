package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skymatch/internal/excel"
)

var templateCmd = &cobra.Command{
	Use:   "template <path>",
	Short: "Write an empty input workbook with the configured layout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		layout := excel.Layout{
			IDColumn:   cfg.Excel.IDColumn,
			NameColumn: cfg.Excel.NameColumn,
			XColumn:    cfg.Excel.XColumn,
			YColumn:    cfg.Excel.YColumn,
		}
		if err := excel.WriteTemplate(f, cfg.Excel.ObservedSheet, cfg.Excel.ReferenceSheet, layout, nil, nil); err != nil {
			return fmt.Errorf("write template: %w", err)
		}
		return f.Close()
	},
}
