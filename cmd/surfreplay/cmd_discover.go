package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/tidemark/surfreplay/internal/db"
	"github.com/tidemark/surfreplay/internal/dex"
	"github.com/tidemark/surfreplay/internal/retry"
)

func discoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Discover the DEX pools the replay trades against and cache them",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, cfg, log, err := loadSetup()
			if err != nil {
				return err
			}

			gw := newGateway(cfg, log)
			if err := gw.Preflight(cmd.Context()); err != nil {
				return err
			}

			quoteMint, err := solana.PublicKeyFromBase58(cfg.Discovery.QuoteMint)
			if err != nil {
				return fmt.Errorf("invalid discovery quote mint: %w", err)
			}

			disc := dex.NewDiscovery(gw.Client(), quoteMint, retry.New(discoveryPolicy(cfg), log), log)
			env, err := disc.Discover(cmd.Context())
			if err != nil {
				return err
			}

			database, err := db.OpenFileDB(home, db.DefaultFileName, true)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := dex.SaveEnv(database, cfg.RPCURL, env); err != nil {
				return err
			}

			log.Info().
				Str("raydium_pool", env.Raydium.AmmID.String()).
				Str("meteora_pair", env.Meteora.LbPair.String()).
				Uint64("slot", env.Slot).
				Msg("venue environment cached")
			return nil
		},
	}
}
