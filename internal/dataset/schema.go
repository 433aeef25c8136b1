package dataset

// Schema names the columns the sales pipeline relies on.
type Schema struct {
	Measure string `json:"measure" validate:"required"`
	Country string `json:"country" validate:"required"`
	Segment string `json:"segment" validate:"required"`
	Date    string `json:"date,omitempty"`
}

// DefaultSchema matches the column names of the reference sales workbook.
func DefaultSchema() Schema {
	return Schema{
		Measure: "Sales",
		Country: "Country",
		Segment: "Segment",
		Date:    "Date",
	}
}
