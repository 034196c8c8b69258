// Package automation drives the portal in a headless browser.
//
// Sequencer walks a fixed state machine (init, login, navigate, configure,
// await generation, download, teardown) against the Browser interface.
// ChromeBrowser implements Browser with chromedp. Portal elements are
// addressed with Locator values that render to XPath or CSS.
package automation
