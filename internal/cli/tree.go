package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/uplinehq/upline/internal/config"
	"github.com/uplinehq/upline/internal/hierarchy"
)

var zoneColors = map[hierarchy.Zone]*color.Color{
	hierarchy.ZoneRed:       color.New(color.FgRed, color.Bold),
	hierarchy.ZoneProducing: color.New(color.FgGreen, color.Bold),
	hierarchy.ZoneInvesting: color.New(color.FgCyan),
	hierarchy.ZoneBlue:      color.New(color.FgBlue),
	hierarchy.ZoneBlack:     color.New(color.FgWhite, color.Faint),
	hierarchy.ZoneYellow:    color.New(color.FgYellow),
	hierarchy.ZoneGreen:     color.New(color.FgGreen),
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the agent hierarchy with zone triage colors",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		svc, cleanup, err := openService(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		nodes, err := svc.ListTree(cmd.Context())
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			fmt.Println("hierarchy is empty")
			return nil
		}
		for _, n := range nodes {
			label := n.Name
			if label == "" {
				label = n.OwnerID
			}
			c, ok := zoneColors[n.Zone]
			if !ok {
				c = color.New(color.Reset)
			}
			fmt.Printf("%s%s %s\n",
				strings.Repeat("  ", n.Depth),
				c.Sprintf("[%s]", n.Zone),
				label)
		}
		return nil
	},
}
