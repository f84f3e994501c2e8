package partition

import "golang.org/x/xerrors"

// ErrInvalidPartitionCount is returned when a work list is split into
// zero or a negative number of partitions.
var ErrInvalidPartitionCount = xerrors.New("number of partitions must exceed 0")

// RoundRobin splits items into numPartitions ordered partitions. The item at
// input position i is assigned to partition i mod numPartitions, so partition
// lengths differ by at most one and each partition preserves the relative
// input order of its items.
//
// The assignment is a pure function of its inputs: re-running it with the
// same work list and partition count regenerates the same assignment. When
// numPartitions exceeds len(items) the trailing partitions are empty.
func RoundRobin[T any](items []T, numPartitions int) ([][]T, error) {
	if numPartitions <= 0 {
		return nil, xerrors.Errorf("round robin split into %d partitions: %w", numPartitions, ErrInvalidPartitionCount)
	}

	parts := make([][]T, numPartitions)
	for p := range parts {
		parts[p] = make([]T, 0, partitionLen(len(items), numPartitions, p))
	}
	for i, item := range items {
		parts[i%numPartitions] = append(parts[i%numPartitions], item)
	}
	return parts, nil
}

// Interleave reverses RoundRobin: it walks the partitions in round-robin
// order and returns the items in their original input order.
func Interleave[T any](parts [][]T) []T {
	var total int
	for _, part := range parts {
		total += len(part)
	}

	out := make([]T, 0, total)
	for offset := 0; len(out) < total; offset++ {
		for _, part := range parts {
			if offset < len(part) {
				out = append(out, part[offset])
			}
		}
	}
	return out
}

// Locate returns the partition index and the offset within that partition
// for the item at the given input position.
func Locate(position, numPartitions int) (int, int, error) {
	if numPartitions <= 0 {
		return -1, -1, xerrors.Errorf("locate position %d: %w", position, ErrInvalidPartitionCount)
	} else if position < 0 {
		return -1, -1, xerrors.Errorf("invalid input position %d", position)
	}
	return position % numPartitions, position / numPartitions, nil
}

// partitionLen returns the number of items that RoundRobin assigns to
// partition p.
func partitionLen(numItems, numPartitions, p int) int {
	n := numItems / numPartitions
	if p < numItems%numPartitions {
		n++
	}
	return n
}
