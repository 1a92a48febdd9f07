package metrics

import (
	"sync"
	"testing"

	"congressd/internal/models"
)

func TestCollector_ConcurrentCounting(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			stats := c.Family(models.FamilyBill)
			for j := 0; j < 100; j++ {
				stats.Received.Add(1)
			}
		}()
	}

	wg.Wait()

	snap := c.SnapshotAll()[models.FamilyBill]
	if snap.Received != 800 {
		t.Errorf("Expected 800 received, got %d", snap.Received)
	}
}

func TestCollector_Totals(t *testing.T) {
	c := NewCollector()

	c.Family(models.FamilyBill).Stored.Add(3)
	c.Family(models.FamilyMember).Stored.Add(2)
	c.Family(models.FamilyMember).FailedValidation.Add(1)

	totals := c.Totals()
	if totals.Stored != 5 || totals.FailedValidation != 1 {
		t.Errorf("Unexpected totals: %+v", totals)
	}
}
