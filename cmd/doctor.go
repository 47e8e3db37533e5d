package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/congsh/PeerHaiguitang/internal/application/config"
	"github.com/congsh/PeerHaiguitang/internal/client"
	"github.com/congsh/PeerHaiguitang/internal/idgen"
)

// doctorCmd checks connectivity the way a browser client would: STUN
// reachability for the P2P path and a relay ping for the polling path.
var doctorCmd = &cobra.Command{
	Use:   "doctor [relay-url...]",
	Short: "Probe STUN servers and relay candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		for _, result := range client.ProbeSTUN(ctx, cfg.StunServers) {
			if result.Reachable {
				fmt.Printf("stun %-40s ok   addr=%s rtt=%s\n", result.Server, result.PublicAddr, result.RTT)
			} else {
				fmt.Printf("stun %-40s FAIL %v\n", result.Server, result.Err)
			}
		}

		if len(args) == 0 {
			return nil
		}

		candidates := make([]client.Candidate, 0, len(args))
		for _, url := range args {
			candidates = append(candidates, client.Candidate{Name: url, Endpoint: url})
		}

		selector := client.NewSelector(idgen.NewClientID(), candidates)

		relay, err := selector.Connect(ctx)
		if err != nil {
			return fmt.Errorf("no relay reachable: %w", err)
		}

		fmt.Printf("relay reachable, degraded=%v\n", relay.Degraded())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
