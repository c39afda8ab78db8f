// Package models contains the GORM persistence models. Domain types carry
// no ORM tags; every model converts to and from its aggregate with
// ToDomain / FromDomain and repositories only ever touch models.
package models
