// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadImages reads image files from disk into Image values, inferring
// the format from the file extension.
func LoadImages(paths []string) ([]Image, error) {
	images := make([]Image, 0, len(paths))
	for _, path := range paths {
		img, err := LoadImage(path)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// LoadImage reads a single image file from disk.
func LoadImage(path string) (Image, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if _, err := imageFormat(format); err != nil {
		return Image{}, fmt.Errorf("loading %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("loading image: %w", err)
	}

	return Image{Format: format, Data: data}, nil
}
