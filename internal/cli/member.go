package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uplinehq/upline/internal/config"
	"github.com/uplinehq/upline/internal/hierarchy"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage hierarchy members",
}

var (
	addParentOwner string
	setStatus      string
	setTier        string
	setContracts   int
	setLeadSpend   float64
)

var memberAddCmd = &cobra.Command{
	Use:   "add <owner-id>",
	Short: "Add a member, as a root or under --parent",
	Args:  cobra.ExactArgs(1),
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

		n, err := svc.AddMember(cmd.Context(), args[0], addParentOwner, hierarchy.Attributes{
			JoinedAt: time.Now(),
		})
		if err != nil {
			return err
		}
		fmt.Printf("added %s at depth %d (zone %s)\n", n.OwnerID, n.Depth, n.Zone)
		return nil
	},
}

var memberMoveCmd = &cobra.Command{
	Use:   "move <owner-id> <new-parent-owner-id>",
	Short: "Move a member and its downline under a new parent",
	Args:  cobra.ExactArgs(2),
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

		if err := svc.MoveMember(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("moved %s under %s\n", args[0], args[1])
		return nil
	},
}

var memberSetCmd = &cobra.Command{
	Use:   "set <owner-id>",
	Short: "Update a member's attributes",
	Args:  cobra.ExactArgs(1),
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

		var upd hierarchy.AttributeUpdate
		if cmd.Flags().Changed("status") {
			upd.Status = &setStatus
		}
		if cmd.Flags().Changed("tier") {
			upd.Tier = &setTier
		}
		if cmd.Flags().Changed("contracts-pending") {
			upd.ContractsPending = &setContracts
		}
		if cmd.Flags().Changed("lead-spend") {
			upd.TotalLeadSpend = &setLeadSpend
		}
		n, err := svc.UpdateMemberAttributes(cmd.Context(), args[0], upd)
		if err != nil {
			return err
		}
		fmt.Printf("updated %s (zone %s)\n", n.OwnerID, n.Zone)
		return nil
	},
}

func init() {
	memberAddCmd.Flags().StringVar(&addParentOwner, "parent", "", "owner id of the recruiting agent")
	memberSetCmd.Flags().StringVar(&setStatus, "status", "", "membership status (active|inactive|terminated)")
	memberSetCmd.Flags().StringVar(&setTier, "tier", "", "label tier")
	memberSetCmd.Flags().IntVar(&setContracts, "contracts-pending", 0, "pending carrier contracts")
	memberSetCmd.Flags().Float64Var(&setLeadSpend, "lead-spend", 0, "total lead spend")
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberMoveCmd)
	memberCmd.AddCommand(memberSetCmd)
}
