package sqlassets

import _ "embed"

//go:embed schema/ats.sql
var ATSSchemaSQL string
