package extract

// sniffWindow is how much of a file the binary sniff inspects.
const sniffWindow = 8 * 1024

// binaryThreshold is the NUL byte ratio above which content is binary.
const binaryThreshold = 0.01

// IsBinary reports whether data looks like binary content.
// More than 1% NUL bytes within the first 8 KiB disqualifies a file.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	window := data
	if len(window) > sniffWindow {
		window = window[:sniffWindow]
	}

	nuls := 0
	for _, b := range window {
		if b == 0 {
			nuls++
		}
	}

	return float64(nuls)/float64(len(window)) > binaryThreshold
}
