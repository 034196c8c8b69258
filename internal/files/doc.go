// Package files handles the local artifacts of a run.
//
// Manager moves a downloaded archive to its canonical, hour-bucketed name
// (TO-PackedHH.zip), replacing any archive already in that bucket.
//
// Extractor unpacks an archive into the extraction directory and lists the
// tabular files at its top level. The returned Extraction owns the directory:
//
//	ext, err := extractor.Open(archive.Path, workDir)
//	if err != nil {
//	    return err
//	}
//	defer ext.Close()
//	dataset, err := normalizer.Normalize(ctx, ext.Tables)
package files
