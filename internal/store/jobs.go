package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/swarm/pkg/models"
)

var (
	// ErrJobNotFound is returned when a queried job id does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobTerminal is returned when an update would mutate a terminal job.
	ErrJobTerminal = errors.New("job is terminal")
	// ErrParentNotFound is returned when a child references a missing parent.
	ErrParentNotFound = errors.New("parent job not found")
)

// terminalStatuses is the SQL fragment guarding terminal immutability.
const terminalStatuses = `('completed', 'failed', 'timed_out', 'killed')`

const jobColumns = `id, parent_id, depth, mode, task, tags, output_ref, status,
	timeout_ns, created_at, started_at, completed_at, result, reason, checkpoint, children`

// CreateJob inserts a new job record. Non-root jobs must reference an
// existing parent.
func (db *DB) CreateJob(j *models.Job) error {
	if j.ParentID != "" {
		parent, err := db.GetJob(j.ParentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("create job %s: %w", j.ID, ErrParentNotFound)
		}
	}

	tags, _ := json.Marshal(j.Tags)
	children, _ := json.Marshal(j.Children)
	checkpoint := marshalCheckpoint(j.Checkpoint)

	_, err := db.Exec(`
		INSERT INTO jobs (id, parent_id, depth, mode, task, tags, output_ref, status,
			timeout_ns, created_at, started_at, completed_at, result, reason, checkpoint, children)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.ParentID, j.Depth, string(j.Mode), j.Task, string(tags), j.OutputRef,
		string(j.Status), int64(j.Timeout), formatTime(j.CreatedAt),
		nullableTime(j.StartedAt), nullableTime(j.CompletedAt),
		j.Result, j.Reason, checkpoint, string(children))
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID. Returns nil without error when absent.
func (db *DB) GetJob(id string) (*models.Job, error) {
	row := db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	j, err := scanJob(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// UpdateJob writes a job's mutable fields. Terminal records are immutable:
// the update is refused with ErrJobTerminal once a job has completed, failed,
// timed out, or been killed. Tags are fixed at creation and children are
// written only through AppendChild, so neither is touched here; callers may
// carry a stale in-memory copy of either without clobbering the stored row.
func (db *DB) UpdateJob(j *models.Job) error {
	checkpoint := marshalCheckpoint(j.Checkpoint)

	res, err := db.Exec(`
		UPDATE jobs SET status = ?, timeout_ns = ?, started_at = ?, completed_at = ?,
			result = ?, reason = ?, checkpoint = ?
		WHERE id = ? AND status NOT IN `+terminalStatuses+`
	`, string(j.Status), int64(j.Timeout), nullableTime(j.StartedAt),
		nullableTime(j.CompletedAt), j.Result, j.Reason, checkpoint, j.ID)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job rows affected: %w", err)
	}
	if affected == 0 {
		existing, err := db.GetJob(j.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("update job %s: %w", j.ID, ErrJobNotFound)
		}
		return fmt.Errorf("update job %s: %w", j.ID, ErrJobTerminal)
	}
	return nil
}

// AppendChild records a child id on the parent's children set. The append
// and its membership check happen in one statement, so concurrent spawns
// against the same parent never lose an id. Children membership is recorded
// even after the parent is terminal (a child can finish after its parent was
// killed); this is the one write that bypasses the terminal-immutability
// guard, and it touches the children column only.
func (db *DB) AppendChild(parentID, childID string) error {
	res, err := db.Exec(`
		UPDATE jobs
		SET children = json_insert(coalesce(nullif(nullif(children, ''), 'null'), '[]'), '$[#]', ?)
		WHERE id = ? AND NOT EXISTS (
			SELECT 1 FROM json_each(coalesce(nullif(nullif(children, ''), 'null'), '[]'))
			WHERE json_each.value = ?
		)
	`, childID, parentID, childID)
	if err != nil {
		return fmt.Errorf("append child: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append child rows affected: %w", err)
	}
	if affected == 0 {
		parent, err := db.GetJob(parentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return fmt.Errorf("append child: %w", ErrJobNotFound)
		}
		// Already a member; duplicate appends are deduped.
	}
	return nil
}

// ListJobs returns jobs matching the filter, ordered by creation time.
func (db *DB) ListJobs(filter models.JobFilter) ([]models.Job, error) {
	rows, err := db.Query(`SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if filter.Matches(j) {
			jobs = append(jobs, *j)
		}
	}
	return jobs, rows.Err()
}

// CountByDepthStatus counts jobs at the given depth in the given state.
func (db *DB) CountByDepthStatus(depth int, status models.JobStatus) (int, error) {
	row := db.QueryRow(`SELECT COUNT(*) FROM jobs WHERE depth = ? AND status = ?`,
		depth, string(status))
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}

// DeleteJob deletes a job by ID. This is only reached through the explicit
// retention policy; the orchestrator never deletes records on its own.
func (db *DB) DeleteJob(id string) error {
	_, err := db.Exec("DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// PurgeTerminalJobs deletes terminal jobs whose completion is older than the
// given duration. Returns the number of jobs deleted.
func (db *DB) PurgeTerminalJobs(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	result, err := db.Exec(`
		DELETE FROM jobs WHERE status IN `+terminalStatuses+` AND completed_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge terminal jobs: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

// scanJob scans one jobs row via the provided scan function.
func scanJob(scan func(...any) error) (*models.Job, error) {
	var j models.Job
	var parentID, tags, outputRef, result, reason, checkpoint, children sql.NullString
	var createdAt string
	var startedAt, completedAt sql.NullString
	var timeoutNS int64

	err := scan(&j.ID, &parentID, &j.Depth, (*string)(&j.Mode), &j.Task, &tags,
		&outputRef, (*string)(&j.Status), &timeoutNS, &createdAt, &startedAt,
		&completedAt, &result, &reason, &checkpoint, &children)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		j.ParentID = parentID.String
	}
	if tags.Valid {
		json.Unmarshal([]byte(tags.String), &j.Tags)
	}
	if outputRef.Valid {
		j.OutputRef = outputRef.String
	}
	if result.Valid {
		j.Result = result.String
	}
	if reason.Valid {
		j.Reason = reason.String
	}
	if checkpoint.Valid && checkpoint.String != "" {
		var cp models.Checkpoint
		if err := json.Unmarshal([]byte(checkpoint.String), &cp); err == nil {
			j.Checkpoint = &cp
		}
	}
	if children.Valid {
		json.Unmarshal([]byte(children.String), &j.Children)
	}
	j.Timeout = time.Duration(timeoutNS)
	j.CreatedAt, _ = parseTime(createdAt)
	j.StartedAt = parseNullableTime(startedAt)
	j.CompletedAt = parseNullableTime(completedAt)
	return &j, nil
}

// marshalCheckpoint serializes a checkpoint for storage, empty when nil.
func marshalCheckpoint(cp *models.Checkpoint) string {
	if cp == nil {
		return ""
	}
	b, _ := json.Marshal(cp)
	return string(b)
}

// nullableTime formats an optional time for storage.
func nullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
