package scraper

// Snapshot is the rendered page at one moment.
type Snapshot struct {
	// HTML is the serialized document, including tooltip containers
	// outside the table.
	HTML string

	// URL is the page location when the snapshot was taken.
	URL string

	// Title is the page title.
	Title string
}
