package render

// Theme holds colors for graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by control-flow kind.
	EdgeTrue        string // conditional branch taken
	EdgeFalse       string // conditional fall-through
	EdgeBack        string // loop back edge
	EdgeBranch      string // unconditional branch
	EdgeFallThrough string // straight-line successor
	EdgeCall        string // call graph edges

	// Node accents.
	EntryBorder   string // entry node outline
	ExitFill      string // nodes ending in Return
	UnreachedText string // nodes never filled, external callees

	// Cluster styling.
	ClusterBorder string // loop cluster border
	ClusterLabel  string // loop cluster label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeTrue:        "#0B3D91", // NASA blue
	EdgeFalse:       "#FC3D21", // NASA red
	EdgeBack:        "#E65100", // deep orange
	EdgeBranch:      "#00695C", // teal
	EdgeFallThrough: "#424242", // dark gray
	EdgeCall:        "#424242",

	EntryBorder:   "#0B3D91",
	ExitFill:      "#ECEFF1", // blue-gray 50
	UnreachedText: "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
