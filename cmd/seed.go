package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/smsflow/smsflow/internal/config"
	"github.com/smsflow/smsflow/internal/db"
	"github.com/smsflow/smsflow/internal/util"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo API key and provider settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.Options{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo data...")

		if err := seedAPIKeys(sqlDB); err != nil {
			return err
		}
		if err := ensureProviderSettings(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedAPIKeys inserts two deterministic demo keys (idempotent). The raw
// keys are printed once here and never stored.
func seedAPIKeys(dbx *sqlx.DB) error {
	keys := []struct {
		accountID int64
		name      string
		raw       string
		active    bool
	}{
		{accountID: 1, name: "demo", raw: "sk_demo_1111111111111111", active: true},
		{accountID: 2, name: "staging", raw: "sk_demo_2222222222222222", active: true},
	}

	// idempotent upsert based on key_hash (UNIQUE)
	const q = `
INSERT INTO api_keys
    (id, account_id, key_hash, key_preview, name, is_active, created_at)
VALUES
    (?, ?, ?, ?, ?, ?, NOW())
ON DUPLICATE KEY UPDATE
    name      = VALUES(name),
    is_active = VALUES(is_active)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, k := range keys {
		sum := sha256.Sum256([]byte(k.raw))
		hash := hex.EncodeToString(sum[:])
		preview := k.raw[:8] + "..." + k.raw[len(k.raw)-4:]
		if _, err := tx.Exec(q, util.NewID(), k.accountID, hash, preview, k.name, k.active); err != nil {
			return fmt.Errorf("insert api key %q: %w", k.name, err)
		}
		log.Printf(">> api key %q (account %d): %s", k.name, k.accountID, k.raw)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit api keys: %w", err)
	}
	return nil
}

// ensureProviderSettings creates the settings singleton if missing. The
// carrier credential columns stay empty; fill them by hand before sending.
func ensureProviderSettings(dbx *sqlx.DB) error {
	const q = `
INSERT INTO provider_settings (id, default_provider, updated_at)
SELECT 1, 'onbuka', NOW()
FROM DUAL
WHERE NOT EXISTS (SELECT 1 FROM provider_settings WHERE id = 1)
`
	if _, err := dbx.Exec(q); err != nil {
		return fmt.Errorf("ensure provider settings: %w", err)
	}
	return nil
}
