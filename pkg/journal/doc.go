/*
Package journal keeps an append-only record of lifecycle operations in a
local bbolt database.

Every controller operation appends one record: what ran, against which
member, how it ended, and how long it took. The journal is the
operator's flight recorder for a unit — after a failed switchover or a
stuck bootstrap, `paddock history` shows what the controller actually
did and when.

# Design Notes

Records are stored under time-prefixed keys in a fixed-width layout, so
bbolt's byte ordering is chronological ordering and Recent is a reverse
cursor walk with no secondary index. The journal is strictly local
state: it is never consulted to make decisions, only written and read
back for operators.

# Usage

	j, err := journal.Open("/var/lib/paddock")
	if err != nil {
		return err
	}
	defer j.Close()

	j.Append(types.OperationRecord{
		Operation: "bootstrap",
		Outcome:   types.OutcomeSuccess,
		Duration:  elapsed,
	})

	records, err := j.Recent(20)

# See Also

  - pkg/lifecycle: appends a record per operation
  - pkg/types: the OperationRecord schema
*/
package journal
