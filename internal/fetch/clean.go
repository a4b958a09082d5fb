// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strippedSelectors name the nodes removed before text extraction. Beyond
// non-content tags this covers the usual advertisement and sidebar markup.
var strippedSelectors = []string{
	"script",
	"style",
	"iframe",
	"noscript",
	"nav",
	"aside",
	"header",
	"footer",
	"form",
	"[class*='advert']",
	"[class*='sidebar']",
	"[id*='advert']",
	"[id*='sidebar']",
	"[class*='cookie']",
	"[aria-hidden='true']",
}

// CleanHTML strips non-visible and boilerplate nodes from a rendered page
// and returns its visible text with single-space separation. Unparseable
// input yields the empty string.
func CleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	for _, selector := range strippedSelectors {
		doc.Find(selector).Remove()
	}

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return strings.Join(strings.Fields(root.Text()), " ")
}
