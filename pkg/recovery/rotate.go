package recovery

// Rotate applies a Caesar-style single-alphabet rotation to the letter runs
// of s, leaving non-letters untouched. Uppercase and lowercase runs rotate
// independently within their own alphabets. Negative shifts rotate
// backwards; any shift is normalized modulo 26.
func Rotate(s string, shift int) string {
	shift = ((shift % 26) + 26) % 26
	if shift == 0 {
		return s
	}

	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = 'a' + (c-'a'+byte(shift))%26
		case c >= 'A' && c <= 'Z':
			b[i] = 'A' + (c-'A'+byte(shift))%26
		}
	}
	return string(b)
}
