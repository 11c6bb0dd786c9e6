package bridge

// ValidDriverName reports whether name is safe to place in a converter
// argument vector. Only letters, digits, '_', '=', '.', and ',' are
// allowed; shell metacharacters in particular are rejected.
func ValidDriverName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '_' || ch == '=' || ch == '.' || ch == ',':
		default:
			return false
		}
	}
	return true
}
