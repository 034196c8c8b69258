// Package exporter publishes the normalized dataset.
//
// Publisher performs a full replace of one Google Sheets tab: the tab is
// created when missing, grown when the dataset exceeds its grid, cleared,
// then written from A1 with the header row. Publishing the same dataset
// twice leaves the same contents. Backend access goes through SheetsClient;
// GoogleSheets is the Sheets v4 implementation.
//
// SnapshotWriter keeps an optional local CSV copy of the same dataset.
package exporter
