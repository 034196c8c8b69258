// Package dataprocessing turns the tables found in a report archive into the
// five-column dataset published to the sheet.
//
// # Components
//
//  1. Readers: CSV (UTF-8, BOM tolerated) and XLSX (first sheet, via excelize)
//  2. Normalizer: merges tables by header name, checks the required columns
//     and reformats the SOC received timestamp day-first
//
// # Usage
//
//	n := dataprocessing.NewNormalizer(logger)
//	ds, err := n.Normalize(ctx, extraction.Tables)
//	if errors.IsKind(err, errors.KindSchema) {
//	    // upstream export changed its columns
//	}
//
// Missing columns fail the whole dataset. Unparseable timestamps only blank
// the affected cell.
package dataprocessing
