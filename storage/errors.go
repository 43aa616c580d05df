package storage

import "github.com/rotisserie/eris"

var (
	ErrEntityDoesNotExist = eris.New("entity does not exist")
	ErrArchetypeNotFound  = eris.New("archetype for type set not found")
)
