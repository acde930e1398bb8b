package database

import _ "embed"

//go:embed schema/maintenance_requests.sql
var RequestsSQL string

//go:embed schema/workers.sql
var WorkersSQL string
