package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sant0-9/surasura/internal/config"
	"github.com/sant0-9/surasura/internal/prompts"
)

func newStagesCmd() *cobra.Command {
	var listSets bool
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List the stages of a template set",
		Long:  "List the stages of a template set in run order, with the earlier stages each one reads and whether it takes a reviewer comment.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// no credential needed to inspect templates
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if v, _ := cmd.Flags().GetString("template-set"); v != "" {
				cfg.Templates.Set = v
			}

			if listSets {
				for _, set := range prompts.Sets(cfg.Templates.Dir) {
					marker := " "
					if set == cfg.Templates.Set {
						marker = "*"
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, set)
				}
				return nil
			}

			reg, err := prompts.Load(cfg.Templates.Set, cfg.Templates.Dir)
			if err != nil {
				return err
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("#", "ID", "Title", "Reads", "Comment")
			for i, st := range reg.Stages() {
				comment := ""
				if st.AcceptsComment {
					comment = "yes"
				}
				reads := strings.Join(st.Inputs, ", ")
				if reads == "" {
					reads = "-"
				}
				t.Row(fmt.Sprint(i+1), st.ID, st.Title, reads, comment)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template set: %s\n", reg.Set())
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&listSets, "sets", false, "List the available template sets instead")
	return cmd
}
