package api

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// pgxTx and ctxType are local aliases so every handler file's WithTx/
// WithTenantTx closures read the same short way the repository layer does.
type pgxTx = pgx.Tx
type ctxType = context.Context
