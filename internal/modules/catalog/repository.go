package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lungfish-labs/simex/internal/domain"
)

// Repository handles asset reference data. Assets are immutable after
// seeding; there is no update or delete path.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new asset catalog repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "catalog").Logger(),
	}
}

// DefaultAssets is the venue's seed catalog.
func DefaultAssets() []domain.Asset {
	return []domain.Asset{
		{Symbol: "USDC", Name: "USD Coin", Kind: domain.AssetKindSpot},
		{Symbol: "USDT", Name: "Tether USD", Kind: domain.AssetKindSpot},
		{Symbol: "BTC", Name: "Bitcoin", Kind: domain.AssetKindSpot},
		{Symbol: "ETH", Name: "Ethereum", Kind: domain.AssetKindSpot},
		{Symbol: "SOL", Name: "Solana", Kind: domain.AssetKindSpot},
		{Symbol: "BTC-PERP", Name: "Bitcoin Perpetual Futures", Kind: domain.AssetKindDerivative},
		{Symbol: "ETH-PERP", Name: "Ethereum Perpetual Futures", Kind: domain.AssetKindDerivative},
		{Symbol: "SOL-PERP", Name: "Solana Perpetual Futures", Kind: domain.AssetKindDerivative},
	}
}

// Seed inserts the given assets if they are not present yet. Idempotent.
func (r *Repository) Seed(assets []domain.Asset) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT OR IGNORE INTO assets (symbol, name, kind, created_at)
		VALUES (?, ?, ?, ?)
	`

	for _, asset := range assets {
		if !asset.Kind.IsValid() {
			return fmt.Errorf("invalid asset kind for %s: %s", asset.Symbol, asset.Kind)
		}

		result, err := r.db.Exec(query,
			strings.ToUpper(strings.TrimSpace(asset.Symbol)),
			asset.Name,
			string(asset.Kind),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to seed asset %s: %w", asset.Symbol, err)
		}

		if n, _ := result.RowsAffected(); n > 0 {
			r.log.Info().Str("symbol", asset.Symbol).Msg("Asset seeded")
		}
	}

	return nil
}

// GetBySymbol returns the asset for a symbol, or ErrUnknownAsset.
func (r *Repository) GetBySymbol(symbol string) (*domain.Asset, error) {
	query := `
		SELECT id, symbol, name, kind, created_at
		FROM assets
		WHERE symbol = ?
	`

	row := r.db.QueryRow(query, strings.ToUpper(strings.TrimSpace(symbol)))

	asset, err := scanAsset(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnknownAsset
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset by symbol: %w", err)
	}

	return &asset, nil
}

// List returns all catalog assets ordered by symbol
func (r *Repository) List() ([]domain.Asset, error) {
	query := `
		SELECT id, symbol, name, kind, created_at
		FROM assets
		ORDER BY symbol ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}

	return assets, nil
}

func scanAsset(scan func(dest ...interface{}) error) (domain.Asset, error) {
	var asset domain.Asset
	var kind, createdAt string

	if err := scan(&asset.ID, &asset.Symbol, &asset.Name, &kind, &createdAt); err != nil {
		return asset, err
	}

	asset.Kind = domain.AssetKind(kind)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		asset.CreatedAt = t
	}

	return asset, nil
}
