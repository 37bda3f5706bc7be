package cmd

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/spf13/cobra"

	apperrors "github.com/insightx/upi-insight/internal/errors"
)

var (
	seedRows int
	seedSeed int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a synthetic transactions dataset for local use",
	Long: `Generate a DuckDB database at the configured dataset path, filled with
synthetic UPI transactions. Useful for trying the tool without real data.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedRows, "rows", 5000, "Number of transactions to generate")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", 42, "Random seed for reproducible data")
	rootCmd.AddCommand(seedCmd)
}

var (
	seedTypes      = []string{"P2P", "P2M", "Bill Payment", "Recharge"}
	seedMerchants  = []string{"Food", "Grocery", "Shopping", "Fuel", "Utilities", "Entertainment", "Healthcare", "Transport", "Education", "Other"}
	seedAgeGroups  = []string{"18-25", "26-35", "36-45", "46-55", "56+"}
	seedStates     = []string{"Delhi", "Maharashtra", "Karnataka", "Tamil Nadu", "Uttar Pradesh", "Gujarat", "West Bengal", "Rajasthan", "Telangana", "Kerala"}
	seedBanks      = []string{"SBI", "HDFC", "ICICI", "Axis", "Kotak", "PNB", "Yes Bank", "IndusInd"}
	seedDevices    = []string{"Android", "iOS", "Web"}
	seedNetworks   = []string{"3G", "4G", "5G", "WiFi"}
	seedWeekdays   = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	seedAgeToLabel = map[string]string{"18-25": "Young", "26-35": "Adult", "36-45": "Adult", "46-55": "Old", "56+": "Old"}
)

const seedTableDDL = `CREATE TABLE transactions (
	transaction_id     VARCHAR NOT NULL,
	timestamp          VARCHAR NOT NULL,
	transaction_type   VARCHAR NOT NULL,
	merchant_category  VARCHAR,
	amount_inr         INTEGER NOT NULL,
	transaction_status VARCHAR NOT NULL,
	sender_age_group   VARCHAR NOT NULL,
	receiver_age_group VARCHAR,
	sender_state       VARCHAR NOT NULL,
	sender_bank        VARCHAR NOT NULL,
	receiver_bank      VARCHAR NOT NULL,
	device_type        VARCHAR NOT NULL,
	network_type       VARCHAR NOT NULL,
	fraud_flag         INTEGER NOT NULL,
	hour_of_day        INTEGER NOT NULL,
	day_of_week        VARCHAR NOT NULL,
	is_weekend         INTEGER NOT NULL,
	day_part           VARCHAR NOT NULL,
	amount_tier        VARCHAR NOT NULL,
	sender_age_label   VARCHAR NOT NULL,
	receiver_age_label VARCHAR
)`

func runSeed(_ *cobra.Command, _ []string) error {
	db, err := sql.Open("duckdb", cfg.Dataset.Path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to create dataset file")
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec("DROP TABLE IF EXISTS transactions"); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to reset dataset")
	}

	if _, err := db.Exec(seedTableDDL); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to create transactions table")
	}

	rng := rand.New(rand.NewSource(seedSeed))

	tx, err := db.Begin()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to begin insert transaction")
	}

	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO transactions VALUES
		(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to prepare insert")
	}

	defer func() { _ = stmt.Close() }()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < seedRows; i++ {
		if _, err := stmt.Exec(seedRow(rng, base, i)...); err != nil {
			return apperrors.Wrapf(err, apperrors.ErrTypeExecution, "failed to insert row %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypeExecution, "failed to commit seed data")
	}

	fmt.Printf("Wrote %d synthetic transactions to %s\n", seedRows, cfg.Dataset.Path)

	return nil
}

// seedRow generates one transaction honoring the dataset's rules: P2P
// rows have no merchant category, non-P2P rows have no receiver age.
func seedRow(rng *rand.Rand, base time.Time, i int) []any {
	txType := pick(rng, seedTypes)

	ts := base.Add(time.Duration(rng.Intn(365*24)) * time.Hour).
		Add(time.Duration(rng.Intn(3600)) * time.Second)

	var merchant any
	if txType != "P2P" {
		merchant = pick(rng, seedMerchants)
	}

	var receiverAge, receiverLabel any

	if txType == "P2P" {
		age := pick(rng, seedAgeGroups)
		receiverAge = age
		receiverLabel = seedAgeToLabel[age]
	}

	// Skew amounts toward small values.
	amount := 10 + rng.Intn(100)*rng.Intn(100)

	status := "SUCCESS"
	if rng.Intn(100) < 5 {
		status = "FAILED"
	}

	fraud := 0
	if rng.Intn(1000) < 3 {
		fraud = 1
	}

	senderAge := pick(rng, seedAgeGroups)
	weekday := ts.Weekday()

	isWeekend := 0
	if weekday == time.Saturday || weekday == time.Sunday {
		isWeekend = 1
	}

	return []any{
		fmt.Sprintf("TXN%010d", i+1),
		ts.Format("2006-01-02 15:04:05"),
		txType,
		merchant,
		amount,
		status,
		senderAge,
		receiverAge,
		pick(rng, seedStates),
		pick(rng, seedBanks),
		pick(rng, seedBanks),
		pick(rng, seedDevices),
		pick(rng, seedNetworks),
		fraud,
		ts.Hour(),
		seedWeekdays[(int(weekday)+6)%7],
		isWeekend,
		dayPart(ts.Hour()),
		amountTier(amount),
		seedAgeToLabel[senderAge],
		receiverLabel,
	}
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

func dayPart(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 17:
		return "Afternoon"
	case hour >= 17 && hour < 21:
		return "Evening"
	default:
		return "Night"
	}
}

func amountTier(amount int) string {
	switch {
	case amount < 500:
		return "Small"
	case amount < 5000:
		return "Medium"
	default:
		return "Large"
	}
}
