// company-events tails the company events topic and logs every event.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gartstein/companies/internal/company/events"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "company-events",
	Short:         "Log company events published on Kafka",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTail,
}

func init() {
	rootCmd.Flags().StringSlice("brokers", nil, "Kafka brokers (env KAFKA_BROKERS)")
	rootCmd.Flags().String("topic", "companies", "topic to read (env TOPIC)")
	rootCmd.Flags().String("group", "company-events", "consumer group id (env GROUP_ID)")
	rootCmd.Flags().StringSlice("type", nil, "only log these event types")

	_ = viper.BindPFlag("kafka_brokers", rootCmd.Flags().Lookup("brokers"))
	_ = viper.BindPFlag("topic", rootCmd.Flags().Lookup("topic"))
	_ = viper.BindPFlag("group_id", rootCmd.Flags().Lookup("group"))
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runTail(cmd *cobra.Command, _ []string) error {
	brokers := splitBrokers(viper.GetStringSlice("kafka_brokers"))
	if len(brokers) == 0 {
		return errors.New("no Kafka brokers configured")
	}
	types, _ := cmd.Flags().GetStringSlice("type")

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := events.NewConsumer(brokers, viper.GetString("group_id"), viper.GetString("topic"), logger)
	consumer.RegisterHandler(logEvent(logger.Named("company_events"), types))
	consumer.Start(ctx)

	logger.Info("Tailing company events",
		zap.Strings("brokers", brokers),
		zap.String("topic", viper.GetString("topic")),
	)
	<-consumer.Done()
	consumer.Close()
	return nil
}

// splitBrokers accepts both repeated flags and a comma separated env value.
func splitBrokers(in []string) []string {
	var out []string
	for _, item := range in {
		for _, b := range strings.Split(item, ",") {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
	}
	return out
}

func logEvent(logger *zap.Logger, types []string) func(context.Context, events.Event) error {
	allowed := make(map[events.EventType]bool, len(types))
	for _, t := range types {
		allowed[events.EventType(t)] = true
	}

	return func(_ context.Context, event events.Event) error {
		if len(allowed) > 0 && !allowed[event.Type] {
			return nil
		}
		fields := []zap.Field{
			zap.String("event_type", string(event.Type)),
			zap.Time("occurred_at", event.OccurredAt),
		}
		if event.Company != nil {
			fields = append(fields,
				zap.Int("company_id", event.Company.ID),
				zap.String("name", event.Company.Name),
				zap.String("industry", event.Company.Industry),
				zap.String("address", event.Company.Address),
			)
		}
		logger.Info("Company event", fields...)
		return nil
	}
}
