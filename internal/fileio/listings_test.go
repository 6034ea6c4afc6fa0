package fileio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

const twdExport = `ชื่อสินค้า,ยี่ห้อ,ราคา,ราคาปกติ,หมวดหมู่,ลิงก์,spec:ขนาดจอ
ซัมซุง ทีวี 55 นิ้ว UA55AU7700 Crystal UHD,ซัมซุง,"฿14,990",฿16990,tv,https://twd.test/p/1,55 นิ้ว
ชื่อสินค้า,ยี่ห้อ,ราคา,ราคาปกติ,หมวดหมู่,ลิงก์,spec:ขนาดจอ
,ซัมซุง,100,,tv,https://twd.test/p/2,
พัดลมตั้งพื้น ฮาตาริ 16 นิ้ว,ฮาตาริ,990,,,https://twd.test/p/3,
`

func TestReadListingsCSV(t *testing.T) {
	res, err := ReadListings(strings.NewReader(twdExport), "twd.csv", ImportOptions{Retailer: "twd", Category: "fan"})
	require.NoError(t, err)
	require.Len(t, res.Listings, 2)
	assert.Equal(t, 1, res.Skipped)

	tv := res.Listings[0]
	assert.Equal(t, "TWD", tv.RetailerCode)
	assert.Equal(t, "ซัมซุง ทีวี 55 นิ้ว UA55AU7700 Crystal UHD", tv.Name)
	assert.Equal(t, "ซัมซุง", tv.Brand)
	assert.Equal(t, "tv", tv.UnifiedCategory)
	assert.Equal(t, "14990", tv.CurrentPrice.Decimal.String())
	assert.Equal(t, "16990", tv.OriginalPrice.Decimal.String())
	assert.Equal(t, map[string]string{"ขนาดจอ": "55 นิ้ว"}, tv.Specs)
	assert.NotEmpty(t, tv.ID)
	assert.True(t, tv.DiscoveredAt.IsZero())

	fan := res.Listings[1]
	assert.Equal(t, "fan", fan.UnifiedCategory, "default category fills blanks")
	assert.Nil(t, fan.Specs)

	assert.Equal(t, "ชื่อสินค้า", res.Columns["name"])
	assert.Equal(t, "ราคาปกติ", res.Columns["original price"])
	assert.Equal(t, "ราคา", res.Columns["current price"])

	again, err := ReadListings(strings.NewReader(twdExport), "twd.csv", ImportOptions{Retailer: "TWD"})
	require.NoError(t, err)
	assert.Equal(t, tv.ID, again.Listings[0].ID, "derived ids are stable")
}

func TestReadListingsWindows874(t *testing.T) {
	encoded, err := charmap.Windows874.NewEncoder().String(twdExport)
	require.NoError(t, err)

	res, err := ReadListings(bytes.NewReader([]byte(encoded)), "twd.csv", ImportOptions{Retailer: "TWD"})
	require.NoError(t, err)
	require.Len(t, res.Listings, 2)
	assert.Equal(t, "ซัมซุง ทีวี 55 นิ้ว UA55AU7700 Crystal UHD", res.Listings[0].Name)
	assert.Equal(t, "14990", res.Listings[0].CurrentPrice.Decimal.String())
}

func TestReadListingsXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Listing ID", "Retailer", "Product Name", "Brand", "Price", "Retailer SKU", "Unified Category", "Discovered At"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"hp-1", "hp", `Samsung 55" Crystal UHD 4K Smart TV`, "Samsung", 15990, "UA55AU7700KXXT", "tv", "2024-03-01"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"hp-2", "", "No retailer row", "", "", "", "tv", ""}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := ReadListings(buf, "hp.xlsx", ImportOptions{})
	require.NoError(t, err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, 1, res.Skipped)

	l := res.Listings[0]
	assert.Equal(t, "hp-1", l.ID)
	assert.Equal(t, "HP", l.RetailerCode)
	assert.Equal(t, "UA55AU7700KXXT", l.RetailerSku)
	assert.Equal(t, "15990", l.CurrentPrice.Decimal.String())
	assert.Equal(t, "2024-03-01", l.DiscoveredAt.Format("2006-01-02"))
	assert.Equal(t, "Retailer SKU", res.Columns["sku"])
	assert.Equal(t, "Retailer", res.Columns["retailer"])
}

func TestReadListingsErrors(t *testing.T) {
	_, err := ReadListings(strings.NewReader("a,b\n1,2\n"), "x.csv", ImportOptions{Retailer: "HP"})
	assert.ErrorIs(t, err, ErrNoNameColumn)

	_, err = ReadListings(strings.NewReader(""), "x.pdf", ImportOptions{})
	assert.Error(t, err)

	res, err := ReadListings(strings.NewReader(""), "x.csv", ImportOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Listings)
}

func TestResolveKey(t *testing.T) {
	headers := []string{"Brand Name", "Original Price", "Price (THB)", "Product Name"}
	cols := resolveColumns(headers)
	assert.Equal(t, "Product Name", cols[fName])
	assert.Equal(t, "Brand Name", cols[fBrand])
	assert.Equal(t, "Original Price", cols[fOriginalPrice])
	assert.Equal(t, "Price (THB)", cols[fPrice])
	assert.Empty(t, cols[fURL])
}

func TestValidUTF8Prefix(t *testing.T) {
	b := []byte("ทีวี")
	assert.True(t, validUTF8Prefix(b))
	assert.True(t, validUTF8Prefix(b[:len(b)-1]), "cut rune at the end")
	assert.False(t, validUTF8Prefix([]byte{0xB7, 0xD5, 0xC7, 0xD5}))
}
