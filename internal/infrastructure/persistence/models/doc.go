// Package models holds the GORM structs that map to database tables.
// They are deliberately separate from the domain entities so the domain
// layer never carries ORM tags or table concerns.
//
// Conventions:
//   - domain aggregates stay free of GORM annotations
//   - each model file owns the mappers that convert to and from its
//     domain type
//   - repositories only ever touch these models, never raw rows
//
// Layout: base.go carries the shared model embeds, catalog.go the
// product definitions, definition commands and dividend distributions,
// deposit.go the product instances.
package models
