package schema

// DatabaseBackend identifies the storage backend for the event store.
type DatabaseBackend string

// Supported database backends.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
)

// OutputMode identifies the report output format.
type OutputMode string

// Supported output formats.
const (
	CSVOut     OutputMode = "csv"
	TableOut   OutputMode = "table"
	ParquetOut OutputMode = "parquet"
)

// Event tables in the store. A commit event may additionally land in
// TableRetired when it carries a retirement, so TableRetired is a subset of
// TableCommits rather than a disjoint partition.
const (
	TableCommits  = "commits"
	TableOrphaned = "orphaned"
	TableAdopted  = "adopted"
	TableRetired  = "retired"
)

// EventTables lists every event table in the store.
var EventTables = []string{TableCommits, TableOrphaned, TableAdopted, TableRetired}

// Message topic templates. The env placeholder is prod or stg; the action
// placeholder is orphan or adopt.
const (
	TopicActionFormat = "org.fedoraproject.%s.pagure.project.%s"
	TopicCommitFormat = "org.fedoraproject.%s.git.receive"
)

// Project actions tracked from the pagure.project topic family.
const (
	ActionOrphan = "orphan"
	ActionAdopt  = "adopt"
)

// RetirementFile is the sentinel file whose addition marks a package
// retirement commit.
const RetirementFile = "dead.package"
