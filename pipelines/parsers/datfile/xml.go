// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package datfile

import (
	"encoding/xml"
	"strconv"

	"github.com/mdhender/datvault/model"
)

// xmlDatafile matches any root element containing game children; the root
// element name varies across DAT producers so it is deliberately unnamed.
type xmlDatafile struct {
	Games []xmlGame `xml:"game"`
}

type xmlGame struct {
	Name        string   `xml:"name,attr"`
	Description string   `xml:"description"`
	Roms        []xmlRom `xml:"rom"`
}

type xmlRom struct {
	Name   string `xml:"name,attr"`
	Size   string `xml:"size,attr"`
	CRC    string `xml:"crc,attr"`
	MD5    string `xml:"md5,attr"`
	SHA1   string `xml:"sha1,attr"`
	Status string `xml:"status,attr"`
}

// parseXML decodes an XML-dialect DAT. Malformed XML fails the whole file;
// no partial records are returned.
func parseXML(data []byte, source, collection, group string) ([]model.Record, error) {
	var doc xmlDatafile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	var records []model.Record
	for _, game := range doc.Games {
		description := game.Description
		if description == "" {
			description = game.Name
		}
		for _, rom := range game.Roms {
			status := rom.Status
			if status == "" {
				status = statusDefault
			}
			records = append(records, model.Record{
				SourceFile:  source,
				Collection:  collection,
				Title:       game.Name,
				Description: description,
				EntryName:   rom.Name,
				Size:        parseSize(rom.Size),
				CRC:         rom.CRC,
				MD5:         rom.MD5,
				SHA1:        rom.SHA1,
				Status:      status,
				Group:       group,
			})
		}
	}
	return records, nil
}

// parseSize converts a size attribute to bytes. Missing, malformed, or
// negative values all collapse to 0 (unknown).
func parseSize(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
