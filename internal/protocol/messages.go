package protocol

// RESOLVE (client -> server). Corners holds (rows+1) lines of (cols+1)
// vertex color names, top to bottom.
type ResolveMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version,omitempty"`
	RequestID       string     `json:"request_id,omitempty"`
	Seed            *int64     `json:"seed,omitempty"`
	Corners         [][]string `json:"corners"`
	Snapshot        bool       `json:"snapshot,omitempty"`
	// Encoding "RLE" asks for TilesRLE instead of Tiles.
	Encoding string `json:"encoding,omitempty"`
}

// RESOLVED (server -> client)
type ResolvedMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	RequestID       string    `json:"request_id,omitempty"`
	CatalogDigest   string    `json:"catalog_digest"`
	Seed            int64     `json:"seed"`
	Rows            int       `json:"rows"`
	Cols            int       `json:"cols"`
	Tiles           [][]int32 `json:"tiles,omitempty"`
	Encoding        string    `json:"encoding,omitempty"`
	TilesRLE        string    `json:"tiles_rle,omitempty"`
	GridDigest      string    `json:"grid_digest"`
	Snapshot        string    `json:"snapshot,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
}

// MATCH (client -> server): the four corner colors of one cell.
type MatchMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
	TopLeft         string `json:"top_left"`
	TopRight        string `json:"top_right"`
	BottomLeft      string `json:"bottom_left"`
	BottomRight     string `json:"bottom_right"`
}

// MATCH_RESULT (server -> client). Candidates are in selection order.
type MatchResultMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	RequestID       string    `json:"request_id,omitempty"`
	Candidates      []TileRef `json:"candidates"`
}

type TileRef struct {
	ID          int32   `json:"id"`
	Probability float64 `json:"probability"`
	// Corner colors as [top_left, top_right, bottom_left, bottom_right].
	Corners [4]string `json:"corners"`
	// Rect is the tile's source rectangle in the tileset image as
	// [x, y, width, height]; absent when the tile lies outside the image.
	Rect *[4]int `json:"rect,omitempty"`
}

type ColorRef struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Probability    float64 `json:"probability"`
	Representative *int32  `json:"representative,omitempty"`
}

type TilesetRef struct {
	Name       string `json:"name"`
	TileWidth  int    `json:"tile_width"`
	TileHeight int    `json:"tile_height"`
	Columns    int    `json:"columns"`
	TileCount  int    `json:"tile_count"`
	Image      string `json:"image,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// CATALOG (server -> client)
type CatalogMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tileset         TilesetRef `json:"tileset"`
	WangSet         string     `json:"wang_set"`
	Digest          string     `json:"digest"`
	Colors          []ColorRef `json:"colors"`
	Tiles           []TileRef  `json:"tiles"`
}

// ERROR (server -> client). Row, Col and Pattern are set for
// E_UNSATISFIABLE; Pattern uses the TileRef corner order.
type ErrorMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RequestID       string     `json:"request_id,omitempty"`
	Code            string     `json:"code"`
	Message         string     `json:"message"`
	Row             *int       `json:"row,omitempty"`
	Col             *int       `json:"col,omitempty"`
	Pattern         *[4]string `json:"pattern,omitempty"`
}
