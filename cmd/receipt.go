package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Luminawater/juketogether/internal/application/clock"
	"github.com/Luminawater/juketogether/internal/application/config"
	"github.com/Luminawater/juketogether/internal/infra/adapters/payment"
)

var receiptTTL time.Duration

// receiptCmd выписывает квитанцию на буст так же, как это делает платёжный шлюз
var receiptCmd = &cobra.Command{
	Use:   "receipt [user-id] [room-id]",
	Short: "Issue a signed boost receipt for local testing",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.New()
		if err != nil {
			log.Fatalf("could not load config: %v", err)
		}

		userID, err := uuid.Parse(args[0])
		if err != nil {
			log.Fatalf("invalid user id: %v", err)
		}

		raw, err := payment.NewReceiptValidator([]byte(cfg.PaymentsSecret), clock.Real()).
			Issue(userID, args[1], receiptTTL)
		if err != nil {
			log.Fatalf("issue receipt: %v", err)
		}

		fmt.Println(raw)
	},
}

func init() {
	receiptCmd.Flags().DurationVar(&receiptTTL, "ttl", 15*time.Minute, "how long the receipt can be redeemed")
	rootCmd.AddCommand(receiptCmd)
}
