// Package artwork stores cover images for catalog ROMs.
//
// Each ROM gets a big cover stored exactly as uploaded and a small cover scaled
// down to a fixed width for list views. Both live under the ROM's resources
// directory and are referenced from the catalog by paths relative to the
// resources root.
package artwork
