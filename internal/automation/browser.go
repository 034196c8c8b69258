package automation

import (
	"context"

	"socsync/pkg/contracts/domain"
)

// KeyEscape is the key name PressKey expects for the Escape key
const KeyEscape = "\u001b"

// Browser is the set of page capabilities the export sequence needs.
// Every blocking method honours ctx cancellation and deadline.
type Browser interface {
	// Navigate loads url in the current page
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until the element is visible
	WaitVisible(ctx context.Context, loc Locator) error
	// Visible reports whether the element is currently visible without waiting
	Visible(ctx context.Context, loc Locator) (bool, error)
	// Fill replaces the value of an input element
	Fill(ctx context.Context, loc Locator, value string) error
	// Click clicks the first element matched by loc
	Click(ctx context.Context, loc Locator) error
	// PressKey sends a key press to the focused element
	PressKey(ctx context.Context, key string) error
	// Download clicks trigger and waits for the resulting download to be
	// saved in dir under its suggested name
	Download(ctx context.Context, trigger Locator, dir string) (*domain.DownloadArtifact, error)
	// Close releases the browser. Safe to call more than once.
	Close() error
}

// BrowserFactory launches an isolated browser session
type BrowserFactory func(ctx context.Context) (Browser, error)
