package kernel

// Spec describes a catalog entry. Description is shown in usage text.
type Spec struct {
	Name        string
	Description string
	Kernel      Kernel
}

// Identity is the fallback kernel: convolving with it copies the image.
var Identity = Kernel{
	{0, 0, 0},
	{0, 1, 0},
	{0, 0, 0},
}

// catalog is the authoritative list of recognized filters, in the order they
// are presented to users. It is never modified after init.
var catalog = []Spec{
	{
		Name:        "edge",
		Description: "Laplacian edge detection.",
		Kernel:      Kernel{{0, -1, 0}, {-1, 4, -1}, {0, -1, 0}},
	},
	{
		Name:        "sharpen",
		Description: "Sharpen (identity plus Laplacian).",
		Kernel:      Kernel{{0, -1, 0}, {-1, 5, -1}, {0, -1, 0}},
	},
	{
		Name:        "blur",
		Description: "Uniform 3x3 box blur.",
		Kernel: Kernel{
			{1 / 9.0, 1 / 9.0, 1 / 9.0},
			{1 / 9.0, 1 / 9.0, 1 / 9.0},
			{1 / 9.0, 1 / 9.0, 1 / 9.0},
		},
	},
	{
		Name:        "gauss",
		Description: "3x3 Gaussian blur approximation.",
		Kernel: Kernel{
			{1.0 / 16, 1.0 / 8, 1.0 / 16},
			{1.0 / 8, 1.0 / 4, 1.0 / 8},
			{1.0 / 16, 1.0 / 8, 1.0 / 16},
		},
	},
	{
		Name:        "emboss",
		Description: "Emboss toward the lower right.",
		Kernel:      Kernel{{-2, -1, 0}, {-1, 1, 1}, {0, 1, 2}},
	},
	{
		Name:        "identity",
		Description: "Copy the image unchanged.",
		Kernel:      Identity,
	},
}

var byName = func() map[string]Kernel {
	m := make(map[string]Kernel, len(catalog))
	for _, s := range catalog {
		m[s.Name] = s.Kernel
	}
	return m
}()

// Resolve returns the kernel registered under name and whether the name was
// recognized. Unknown names resolve to Identity.
func Resolve(name string) (Kernel, bool) {
	k, ok := byName[name]
	if !ok {
		return Identity, false
	}
	return k, true
}

// Lookup returns the kernel registered under name, or Identity when the name
// is not recognized. The fallback is not an error.
func Lookup(name string) Kernel {
	k, _ := Resolve(name)
	return k
}

// Specs returns a copy of the catalog in presentation order.
func Specs() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the recognized filter names in presentation order.
func Names() []string {
	out := make([]string, len(catalog))
	for i, s := range catalog {
		out[i] = s.Name
	}
	return out
}
