package repository

import "testing"

func TestPageRequestNormalization(t *testing.T) {
	cases := map[string]struct {
		in   PageRequest
		want PageRequest
	}{
		"zero value":       {PageRequest{}, PageRequest{Page: 1, PageSize: 20}},
		"negative page":    {PageRequest{Page: -3, PageSize: 5}, PageRequest{Page: 1, PageSize: 5}},
		"negative size":    {PageRequest{Page: 4, PageSize: -1}, PageRequest{Page: 4, PageSize: 20}},
		"oversized page":   {PageRequest{Page: 1, PageSize: 1000}, PageRequest{Page: 1, PageSize: MaxPageSize}},
		"already in range": {PageRequest{Page: 7, PageSize: 50}, PageRequest{Page: 7, PageSize: 50}},
	}
	for name, tc := range cases {
		if got := normalizePageRequest(tc.in); got != tc.want {
			t.Fatalf("%s: got %+v want %+v", name, got, tc.want)
		}
	}
}

func TestTotalPagesRoundsUp(t *testing.T) {
	for _, tc := range []struct {
		accounts int64
		size     int
		pages    int
	}{
		{0, 20, 0},
		{5, 0, 0},
		{1, 20, 1},
		{40, 20, 2},
		{41, 20, 3},
		{101, MaxPageSize, 2},
	} {
		if got := calcTotalPages(tc.accounts, tc.size); got != tc.pages {
			t.Fatalf("calcTotalPages(%d, %d)=%d want %d", tc.accounts, tc.size, got, tc.pages)
		}
	}
}
