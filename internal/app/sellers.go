package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vladislavdragonenkov/placeorder/internal/domain"
)

// defaultSeller — продавец для локального запуска.
func defaultSeller() domain.Seller {
	return domain.Seller{
		TypeOf:     "Corporation",
		ID:         "tokyo-tower",
		Identifier: "TokyoTower",
		Name:       domain.MultilingualString{Ja: "東京タワー", En: "Tokyo Tower"},
		URL:        "https://www.tokyotower.co.jp/",
	}
}

// loadSellers читает JSON-массив продавцов.
func loadSellers(path string) ([]domain.Seller, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sellers: %w", err)
	}

	var sellers []domain.Seller
	if err := json.Unmarshal(raw, &sellers); err != nil {
		return nil, fmt.Errorf("decode sellers: %w", err)
	}
	return sellers, nil
}
