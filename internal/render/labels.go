package render

// DefaultServiceLabels maps the site's service_type codes to display labels.
var DefaultServiceLabels = map[string]string{
	"other":               "Other",
	"complex":             "Service bundle",
	"3d_modeling":         "3D modeling",
	"3d_printing":         "3D printing",
	"3d_scanning":         "3D scanning",
	"reverse_engineering": "Reverse engineering",
	"engineering":         "Engineering",
	"post_processing":     "Post-processing",
}

// ServiceLabel returns the label for code; unknown codes pass through.
func (r *Renderer) ServiceLabel(code string) string {
	if l, ok := r.labels[code]; ok {
		return l
	}
	return code
}
