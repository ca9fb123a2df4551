// Package models contains GORM persistence models for records whose storage
// shape differs from the domain type.
//
// Most entities of the inventory carry their own gorm tags and are stored
// directly. Log entries are not: their free-form extra payload is a JSON
// column, and the domain LogEntry stays a plain struct. Mappers convert
// between the two.
package models
