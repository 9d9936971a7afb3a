package domain

// Tour is a bookable trip package together with its seed reviews.
type Tour struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	City         string     `json:"city"`
	Address      string     `json:"address"`
	Distance     float64    `json:"distance"`
	Price        int64      `json:"price"`
	MaxGroupSize int        `json:"max_group_size"`
	Desc         string     `json:"desc"`
	Photo        string     `json:"photo"`
	Featured     bool       `json:"featured"`
	Reviews      Collection `json:"reviews,omitempty"`
}
