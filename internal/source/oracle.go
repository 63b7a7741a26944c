package source

// Metric names and label keys are part of the exporter's external contract.
const (
	MetricActiveSessions = "oracle.active.sessions"
	MetricPhysicalReads  = "oracle.physical.reads.total"
	MetricExecuteCount   = "oracle.execute.count.total"
	MetricTablespaceUsed = "oracle.tablespace.used.percent"

	LabelTablespace = "tablespace"
)

// Queries holds the SQL text for the built-in metrics.
type Queries struct {
	ActiveSessions string
	PhysicalReads  string
	ExecuteCount   string
	// TablespaceUsage must return (tablespace_name, used_percent) rows.
	TablespaceUsage string
}

// OracleQueries reads Oracle's dynamic performance and dictionary views.
// Free space is summed separately from data files so that tablespaces with several
// free extents are not double counted by the join.
var OracleQueries = Queries{
	ActiveSessions: `SELECT COUNT(*) FROM V$SESSION WHERE STATUS = 'ACTIVE' AND TYPE = 'USER'`,
	PhysicalReads:  `SELECT VALUE FROM V$SYSSTAT WHERE NAME = 'physical reads'`,
	ExecuteCount:   `SELECT VALUE FROM V$SYSSTAT WHERE NAME = 'execute count'`,
	TablespaceUsage: `SELECT d.tablespace_name,
       ROUND((d.bytes - NVL(f.bytes, 0)) / d.bytes * 100, 2) AS used_percent
  FROM (SELECT tablespace_name, SUM(bytes) AS bytes FROM dba_data_files GROUP BY tablespace_name) d
  LEFT JOIN (SELECT tablespace_name, SUM(bytes) AS bytes FROM dba_free_space GROUP BY tablespace_name) f
    ON d.tablespace_name = f.tablespace_name`,
}

// Catalog returns the fixed set of exported metrics bound to db.
func Catalog(db Queryer, q Queries, opts ...Option) []Definition {
	return []Definition{
		{
			Name:        MetricActiveSessions,
			Description: "Number of active user sessions",
			Source:      NewScalarQuery(MetricActiveSessions, db, q.ActiveSessions, opts...),
		},
		{
			Name:        MetricPhysicalReads,
			Description: "Total number of physical reads from disk",
			Source:      NewScalarQuery(MetricPhysicalReads, db, q.PhysicalReads, opts...),
		},
		{
			Name:        MetricExecuteCount,
			Description: "Total number of SQL statement executions",
			Source:      NewScalarQuery(MetricExecuteCount, db, q.ExecuteCount, opts...),
		},
		{
			Name:        MetricTablespaceUsed,
			Description: "Percentage of used space per tablespace",
			Labels:      []string{LabelTablespace},
			Source:      NewLabeledQuery(MetricTablespaceUsed, db, q.TablespaceUsage, 1, opts...),
		},
	}
}
