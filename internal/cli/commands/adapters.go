package commands

// Adapters register their repository factories on import.
import (
	_ "github.com/conduit-lang/relmap/internal/orm/adapters/memory"
	_ "github.com/conduit-lang/relmap/internal/orm/adapters/redisdb"
	_ "github.com/conduit-lang/relmap/internal/orm/adapters/sqldb"
)
