package cohort

import "testing"

func TestClassifyAgeBoundaries(t *testing.T) {
	cases := []struct {
		days int
		want AgeCohort
	}{
		{0, AgeUpTo1Day},
		{1, AgeUpTo1Day},
		{2, Age1DayTo1Week},
		{7, Age1DayTo1Week},
		{8, Age1WeekTo1Month},
		{3650, Age7YearsTo10Years},
		{3651, AgeOver10Years},
		{100000, AgeOver10Years},
	}
	for _, tc := range cases {
		if got := ClassifyAge(tc.days); got != tc.want {
			t.Errorf("ClassifyAge(%d) = %v, want %v", tc.days, got, tc.want)
		}
	}
}

func TestClassifySizeBoundaries(t *testing.T) {
	cases := []struct {
		sats uint64
		want SizeCohort
	}{
		{0, SizePlankton},
		{99_999_999, SizePlankton},
		{1 * satsPerBTC, SizeShrimp},
		{10 * satsPerBTC, SizeCrab},
		{50 * satsPerBTC, SizeFish},
		{100 * satsPerBTC, SizeShark},
		{1_000 * satsPerBTC, SizeWhale},
		{10_000 * satsPerBTC, SizeHumpback},
		{1_000_000 * satsPerBTC, SizeHumpback},
	}
	for _, tc := range cases {
		if got := ClassifySize(tc.sats); got != tc.want {
			t.Errorf("ClassifySize(%d) = %v, want %v", tc.sats, got, tc.want)
		}
	}
}

func TestExclusivityEnumeration(t *testing.T) {
	if len(AllAgeIDs()) != NumAgeCohorts {
		t.Errorf("expected %d age ids, got %d", NumAgeCohorts, len(AllAgeIDs()))
	}
	if len(AllSizeIDs()) != NumSizeCohorts {
		t.Errorf("expected %d size ids, got %d", NumSizeCohorts, len(AllSizeIDs()))
	}
	seen := make(map[AgeCohort]bool)
	for _, id := range AllAgeIDs() {
		if seen[id.Age] {
			t.Errorf("duplicate age cohort %v", id.Age)
		}
		seen[id.Age] = true
	}
}
