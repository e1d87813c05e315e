// Command hivemind-reviewer is the operator-facing CLI for the Quarantine
// Queue and Approval Service (spec §6.3): fetch_next_pending, approve,
// reject, flag_sensitive, prescreen, and stats, each a cobra subcommand in
// the same style as the teacher's CLI root command structure.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hivemind-dev/hivemind/internal/approval"
	"github.com/hivemind-dev/hivemind/internal/embedder"
	"github.com/hivemind-dev/hivemind/internal/env"
	"github.com/hivemind-dev/hivemind/internal/logging"
	"github.com/hivemind-dev/hivemind/internal/prescreen"
	"github.com/hivemind-dev/hivemind/internal/quarantine"
	"github.com/hivemind-dev/hivemind/internal/reviewer"
	"github.com/hivemind-dev/hivemind/internal/store"
	"github.com/hivemind-dev/hivemind/internal/tracing"
)

var (
	tenantID string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hivemind-reviewer",
		Short: "Operator CLI for the HiveMind quarantine queue and approval pipeline",
	}
	rootCmd.PersistentFlags().StringVar(&tenantID, "tenant", "", "Tenant ID to operate as (required)")
	_ = rootCmd.MarkPersistentFlagRequired("tenant")

	rootCmd.AddCommand(
		fetchNextPendingCmd(),
		approveCmd(),
		rejectCmd(),
		flagSensitiveCmd(),
		prescreenCmd(),
		statsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newService(ctx context.Context) (*reviewer.Service, func(), error) {
	st, err := store.NewPostgresStore(store.Config{
		URL:     env.PostgresURL.Get(),
		URLFile: env.PostgresURLFile.Get(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to store: %w", err)
	}

	emb := embedder.New(embedder.Config{
		APIKey:     env.OpenAIAPIKey.Get(),
		BaseURL:    env.OpenAIBaseURL.Get(),
		ModelID:    env.EmbeddingModelID.Get(),
		Dimensions: env.EmbeddingDimensions.Get(),
		QueueDepth: env.EmbedderQueueDepth.Get(),
	})

	queue := quarantine.New(st)
	appr := approval.New(st, emb)
	pre := prescreen.New(st, emb)
	svc := reviewer.New(queue, appr, pre, st)

	cleanup := func() { _ = st.Close() }
	return svc, cleanup, nil
}

func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *reviewer.Service) error) error {
	zl, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zl.Sync()

	ctx := logging.Into(cmd.Context(), zapr.NewLogger(zl))

	if env.TracingEnabled.Get() {
		tracing.EnableSampling()
	}

	svc, cleanup, err := newService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return fn(ctx, svc)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func fetchNextPendingCmd() *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "fetch-next-pending",
		Short: "Claim the next batch of unreviewed contributions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *reviewer.Service) error {
				rows, releaser, err := svc.FetchNextPending(ctx, tenantID, batchSize)
				if err != nil {
					return err
				}
				defer releaser.Release(nil)
				return printJSON(rows)
			})
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", quarantine.DefaultBatchSize, "Number of rows to claim")
	return cmd
}

func approveCmd() *cobra.Command {
	var id, category string
	var isPublic bool
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Promote a pending contribution to the approved set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *reviewer.Service) error {
				var override *store.Category
				if category != "" {
					c := store.Category(category)
					override = &c
				}
				approvedID, err := svc.Approve(ctx, tenantID, id, override, isPublic)
				if err != nil {
					return err
				}
				return printJSON(map[string]string{"approved_id": approvedID})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Pending contribution ID")
	_ = cmd.MarkFlagRequired("id")
	cmd.Flags().StringVar(&category, "category", "", "Override the submitter's category")
	cmd.Flags().BoolVar(&isPublic, "public", false, "Make the snippet visible across tenants")
	return cmd
}

func rejectCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject a pending contribution with no promotion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *reviewer.Service) error {
				if err := svc.Reject(ctx, tenantID, id); err != nil {
					return err
				}
				return printJSON(map[string]bool{"rejected": true})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Pending contribution ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func flagSensitiveCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "flag-sensitive",
		Short: "Withhold a pending contribution for containing sensitive material",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *reviewer.Service) error {
				if err := svc.FlagSensitive(ctx, tenantID, id); err != nil {
					return err
				}
				return printJSON(map[string]bool{"flagged": true})
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Pending contribution ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func prescreenCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "prescreen",
		Short: "Show the advisory quality index and near-duplicate lookup for a pending contribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *reviewer.Service) error {
				res, err := svc.Prescreen(ctx, tenantID, id)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Pending contribution ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate contribution counters for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *reviewer.Service) error {
				res, err := svc.Stats(ctx, tenantID)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	return cmd
}
