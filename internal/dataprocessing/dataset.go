package dataprocessing

// Column names of the published dataset, in publish order
const (
	ColumnOrderID        = "Order ID"
	ColumnSOCReceived    = "SOC Received time"
	ColumnNextStation    = "Next Station"
	ColumnCurrentStation = "Current Station"
	ColumnOutbound3PL    = "Outbound 3PL"
)

// TimestampLayout is the canonical rendering of the SOC received column
const TimestampLayout = "02/01/2006 15:04:05"

// RequiredColumns returns the projected columns in their fixed order
func RequiredColumns() []string {
	return []string{
		ColumnOrderID,
		ColumnSOCReceived,
		ColumnNextStation,
		ColumnCurrentStation,
		ColumnOutbound3PL,
	}
}

// Table is one tabular file read into memory
type Table struct {
	Source string
	Header []string
	Rows   [][]string
}

// Dataset is the normalized result. Every row has len(Header) cells and
// missing values are empty strings.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Empty reports whether there is nothing to publish
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// Grid returns the header followed by the rows
func (d *Dataset) Grid() [][]string {
	if d == nil {
		return nil
	}
	grid := make([][]string, 0, len(d.Rows)+1)
	grid = append(grid, d.Header)
	grid = append(grid, d.Rows...)
	return grid
}
