// Package files resolves dataset files under the data directory.
//
// A Locator distinguishes three outcomes for a name: the file is present,
// nothing exists at the path (the caller skips it silently), or something
// unusable exists there such as a directory (the caller reports it).
//
// Example usage:
//
//	loc := files.NewLocator("data/raw")
//	info, found, err := loc.Locate("city_zones.csv")
//	if err == nil && found {
//	    data, err := loc.Read(info.Name)
//	}
package files
