package seed

import (
	"fmt"
	"io"
	"os"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupFixture is one group entry of a groups file.
type GroupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

type groupsFile struct {
	Groups []GroupFixture `yaml:"groups"`
}

// DefaultGroups is used when no groups file is given.
var DefaultGroups = []GroupFixture{
	{Title: "Cats", Slug: "cats", Description: "Everything about cats."},
	{Title: "Travel", Slug: "travel", Description: "Trips, routes and photos from the road."},
	{Title: "Books", Slug: "books", Description: "Reading lists and reviews."},
	{Title: "Programming", Slug: "programming", Description: "Code, tools and war stories."},
}

// LoadGroups decodes and validates a YAML document of the form
//
//	groups:
//	  - title: Cats
//	    slug: cats
//	    description: Everything about cats.
func LoadGroups(r io.Reader) ([]GroupFixture, error) {
	var f groupsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}

	seen := make(map[string]bool, len(f.Groups))
	for i := range f.Groups {
		g := &f.Groups[i]
		g.Title = strings.TrimSpace(g.Title)
		g.Slug = strings.TrimSpace(g.Slug)
		if err := validation.ValidateGroupTitle(g.Title); err != nil {
			return nil, fmt.Errorf("group %d: %w", i+1, err)
		}
		if err := validation.ValidateGroupSlug(g.Slug); err != nil {
			return nil, fmt.Errorf("group %d (%s): %w", i+1, g.Slug, err)
		}
		if seen[g.Slug] {
			return nil, fmt.Errorf("group %d: duplicate slug %q", i+1, g.Slug)
		}
		seen[g.Slug] = true
	}
	return f.Groups, nil
}

// LoadGroupsFile reads fixtures from path.
func LoadGroupsFile(path string) ([]GroupFixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadGroups(f)
}

// Groups upserts fixtures by slug, so running it twice leaves one row per slug.
func Groups(db *gorm.DB, fixtures []GroupFixture) ([]models.Group, error) {
	out := make([]models.Group, 0, len(fixtures))
	for _, item := range fixtures {
		group := models.Group{Title: item.Title, Slug: item.Slug, Description: item.Description}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(&group).Error
		if err != nil {
			return nil, fmt.Errorf("seed group %s: %w", item.Slug, err)
		}
		// the key reported after an upsert is not reliable on every driver
		var stored models.Group
		if err := db.Where("slug = ?", item.Slug).First(&stored).Error; err != nil {
			return nil, fmt.Errorf("reload group %s: %w", item.Slug, err)
		}
		out = append(out, stored)
	}
	return out, nil
}
