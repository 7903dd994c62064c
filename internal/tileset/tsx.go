package tileset

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"tilecraft.ai/internal/wang"
)

type tsxTileset struct {
	XMLName    xml.Name `xml:"tileset"`
	Name       string   `xml:"name,attr"`
	TileWidth  int      `xml:"tilewidth,attr"`
	TileHeight int      `xml:"tileheight,attr"`
	TileCount  int      `xml:"tilecount,attr"`
	Columns    int      `xml:"columns,attr"`
	Margin     int      `xml:"margin,attr"`
	Spacing    int      `xml:"spacing,attr"`
	Image      struct {
		Source string `xml:"source,attr"`
		Width  int    `xml:"width,attr"`
		Height int    `xml:"height,attr"`
	} `xml:"image"`
	WangSets []tsxWangSet `xml:"wangsets>wangset"`
}

type tsxWangSet struct {
	Name   string         `xml:"name,attr"`
	Type   string         `xml:"type,attr"`
	Tile   string         `xml:"tile,attr"`
	Colors []tsxWangColor `xml:"wangcolor"`
	Tiles  []tsxWangTile  `xml:"wangtile"`
}

type tsxWangColor struct {
	Name        string `xml:"name,attr"`
	Color       string `xml:"color,attr"`
	Tile        string `xml:"tile,attr"`
	Probability string `xml:"probability,attr"`
}

type tsxWangTile struct {
	TileID int    `xml:"tileid,attr"`
	WangID string `xml:"wangid,attr"`
}

// ParseTSX reads a Tiled XML tileset.
func ParseTSX(raw []byte) (*Description, error) {
	var ts tsxTileset
	dec := xml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&ts); err != nil {
		return nil, &wang.SchemaError{Reason: fmt.Sprintf("tsx: %v", err)}
	}

	d := &Description{
		Name:        ts.Name,
		TileWidth:   ts.TileWidth,
		TileHeight:  ts.TileHeight,
		Columns:     ts.Columns,
		TileCount:   ts.TileCount,
		Margin:      ts.Margin,
		Spacing:     ts.Spacing,
		Image:       ts.Image.Source,
		ImageWidth:  ts.Image.Width,
		ImageHeight: ts.Image.Height,
		Digest:      sha256Hex(raw),
	}
	for _, ws := range ts.WangSets {
		set := WangSet{Name: ws.Name, Type: ws.Type}
		tile, err := optionalTile(ws.Tile)
		if err != nil {
			return nil, &wang.SchemaError{Reason: fmt.Sprintf("tsx: wangset %q: %v", ws.Name, err)}
		}
		set.Tile = tile
		for _, wc := range ws.Colors {
			c := WangColor{Name: wc.Name, Color: wc.Color}
			if c.Tile, err = optionalTile(wc.Tile); err != nil {
				return nil, &wang.SchemaError{Reason: fmt.Sprintf("tsx: wangcolor %q: %v", wc.Name, err)}
			}
			if s := strings.TrimSpace(wc.Probability); s != "" {
				p, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return nil, &wang.SchemaError{Reason: fmt.Sprintf("tsx: wangcolor %q: probability: %v", wc.Name, err)}
				}
				c.Probability = &p
			}
			set.Colors = append(set.Colors, c)
		}
		for _, wt := range ws.Tiles {
			id, err := splitInts(wt.WangID)
			if err != nil {
				return nil, &wang.SchemaError{Reason: fmt.Sprintf("tsx: wangtile %d: %v", wt.TileID, err)}
			}
			set.WangTiles = append(set.WangTiles, WangTile{TileID: wt.TileID, WangID: id})
		}
		d.WangSets = append(d.WangSets, set)
	}
	return d, nil
}

// optionalTile maps Tiled's "-1 means none" tile attribute to nil.
func optionalTile(attr string) (*int, error) {
	attr = strings.TrimSpace(attr)
	if attr == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(attr)
	if err != nil {
		return nil, fmt.Errorf("tile %q: %w", attr, err)
	}
	if n < 0 {
		return nil, nil
	}
	return &n, nil
}

func splitInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("wangid %q: %w", s, err)
		}
		out = append(out, n)
	}
	return out, nil
}
