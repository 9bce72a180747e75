package models

import "encoding/json"

// PrizeItem - внутриигровая награда в составе приза.
type PrizeItem struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"` // >= 1
}

// Prize - запись призовой таблицы за занятое место.
type Prize struct {
	ID           int      `json:"id" db:"id"`
	TournamentID int      `json:"tournament_id" db:"tournament_id"`
	Position     int      `json:"position" db:"position"` // 1-based
	Description  string   `json:"description" db:"description"`
	CashAmount   *float64 `json:"cash_amount,omitempty" db:"cash_amount"`
	CoinsAmount  *int     `json:"coins_amount,omitempty" db:"coins_amount"`
	ItemsJSON    *string  `json:"-" db:"items_json"` // Raw JSON string from DB

	// Parsed items, not stored in DB, populated on read
	Items []PrizeItem `json:"items,omitempty" db:"-"`
}

// DecodeItems разбирает ItemsJSON в Items. Пустой ItemsJSON - не ошибка.
func (p *Prize) DecodeItems() error {
	if p.ItemsJSON == nil || *p.ItemsJSON == "" {
		p.Items = nil
		return nil
	}
	return json.Unmarshal([]byte(*p.ItemsJSON), &p.Items)
}

// EncodeItems сериализует Items обратно в ItemsJSON перед записью.
func (p *Prize) EncodeItems() error {
	if len(p.Items) == 0 {
		p.ItemsJSON = nil
		return nil
	}
	raw, err := json.Marshal(p.Items)
	if err != nil {
		return err
	}
	s := string(raw)
	p.ItemsJSON = &s
	return nil
}
