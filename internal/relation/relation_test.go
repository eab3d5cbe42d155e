package relation

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tordrt/fdnorm/internal/fd"
)

func ordersTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New("orders", []string{"Order ID", "Customer ID", "Name"}, [][]string{
		{"1", "c1", "ann"},
		{"2", "c1", "ann"},
		{"3", "c2", "bob"},
	})
	require.NoError(t, err)
	return tbl
}

func TestNew(t *testing.T) {
	tbl := ordersTable(t)
	assert.Equal(t, []string{"order_id", "customer_id", "name"}, tbl.ColumnNames())
	assert.Equal(t, "{customer_id, name, order_id}", tbl.Attrs().String())

	_, err := New("bad", []string{"a", "A"}, nil)
	assert.Error(t, err)

	_, err = New("bad", []string{"a", "b"}, [][]string{{"1"}})
	assert.Error(t, err)
}

func TestProject(t *testing.T) {
	tbl := ordersTable(t)

	customers, err := tbl.Project("customers", fd.ParseAttrSet("name", "customer_id"))
	require.NoError(t, err)
	assert.Equal(t, []string{"customer_id", "name"}, customers.ColumnNames())
	assert.Equal(t, [][]string{{"c1", "ann"}, {"c2", "bob"}}, customers.Rows)

	_, err = tbl.Project("broken", fd.ParseAttrSet("customer_id", "email"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fd.ErrSchemaMismatch))
	assert.Contains(t, err.Error(), "email")
}

func TestUnion(t *testing.T) {
	a, err := New("a", []string{"x", "y"}, [][]string{{"1", "2"}, {"1", "2"}, {"3", "4"}})
	require.NoError(t, err)
	b, err := New("b", []string{"y", "x"}, [][]string{{"2", "1"}, {"6", "5"}})
	require.NoError(t, err)

	u, err := a.Union(b)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}, {"5", "6"}}, u.Rows)

	c := FromAttrs("c", fd.ParseAttrSet("x", "z"))
	_, err = a.Union(c)
	assert.True(t, errors.Is(err, fd.ErrSchemaMismatch))
}

func TestCSVRoundTrip(t *testing.T) {
	in := "Order ID, Name\n1, ann\n2, bob\n"
	tbl, err := ReadCSV("orders", strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "name"}, tbl.ColumnNames())
	assert.Len(t, tbl.Rows, 2)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, "order_id,name\n1,ann\n2,bob\n", buf.String())
}
