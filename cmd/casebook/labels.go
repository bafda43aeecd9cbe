package main

import (
	"fmt"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"casebook/internal/assets"
)

var (
	titleCaser = cases.Title(language.English)
	upperCaser = cases.Upper(language.English)
)

// categoryLabel renders a category for humans; acronyms stay upper case.
func categoryLabel(c assets.Category) string {
	switch c {
	case assets.CategoryBGM, assets.CategorySFX:
		return upperCaser.String(string(c))
	case "":
		return "-"
	}
	return titleCaser.String(string(c))
}

func assetHeaders() []string {
	return []string{"ID", "Path", "Name", "Category", "Type", "Loop", "Volume"}
}

func assetAligns() []columnAlignment {
	return []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
}

func assetRow(d assets.Descriptor) []string {
	loop, volume := "-", "-"
	if d.Audio != nil {
		loop = yesNo(d.Audio.Loop)
		volume = strconv.FormatFloat(d.Audio.Volume, 'f', 2, 64)
	}
	return []string{
		shortID(d.ID),
		d.RelativePath,
		d.DisplayName,
		categoryLabel(d.Category),
		string(d.LogicalType),
		loop,
		volume,
	}
}

func assetRows(list []assets.Descriptor) [][]string {
	rows := make([][]string, 0, len(list))
	for _, d := range list {
		rows = append(rows, assetRow(d))
	}
	return rows
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func describeAsset(d assets.Descriptor) [][]string {
	rows := [][]string{
		{"ID", d.ID},
		{"Path", d.RelativePath},
		{"Name", d.DisplayName},
		{"Category", categoryLabel(d.Category)},
		{"Type", string(d.LogicalType)},
		{"MIME", d.MimeType},
	}
	if d.Audio != nil {
		rows = append(rows,
			[]string{"Loop", yesNo(d.Audio.Loop)},
			[]string{"Volume", fmt.Sprintf("%.2f", d.Audio.Volume)},
		)
	}
	return rows
}
