package dto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListFilters_ClampNegativePaging(t *testing.T) {
	sf, err := SaleListRequest{Limit: -5, Offset: -1}.ToFilter("acme")
	require.NoError(t, err)
	require.Zero(t, sf.Limit)
	require.Zero(t, sf.Offset)

	cf, err := CashSessionListRequest{Limit: -1, Offset: -100}.ToFilter("acme")
	require.NoError(t, err)
	require.Zero(t, cf.Limit)
	require.Zero(t, cf.Offset)
}

func TestListFilters_PassPositivePaging(t *testing.T) {
	sf, err := SaleListRequest{Limit: 25, Offset: 50}.ToFilter("acme")
	require.NoError(t, err)
	require.Equal(t, uint64(25), sf.Limit)
	require.Equal(t, uint64(50), sf.Offset)
}
