package launch

import "regexp"

// Component identifies the launch target.
type Component struct {
	Package string
	// Process is kept as logged, including a leading "." for
	// package-relative class names.
	Process string
}

// String returns the component in package/process form.
func (c Component) String() string {
	return c.Package + "/" + c.Process
}

var componentPattern = regexp.MustCompile(`\b(?:co?)?mp=([^/]+)/(\.?\S+)`)

// ExtractComponent parses the first cmp=<package>/<process> token in line.
func ExtractComponent(line string) (Component, bool) {
	m := componentPattern.FindStringSubmatch(line)
	if m == nil {
		return Component{}, false
	}
	return Component{Package: m[1], Process: m[2]}, true
}
