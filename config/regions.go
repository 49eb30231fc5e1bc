package config

import "akiyascout/server/internal/models"

// Prefectures is the full JIS X 0401 prefecture table. Centroids are the
// prefectural capital coordinates, used to sanity-check geocoding results.
var Prefectures = []models.Region{
	{Code: "01", Name: "hokkaido", NameJa: "北海道", CentroidLat: 43.0642, CentroidLng: 141.3469},
	{Code: "02", Name: "aomori", NameJa: "青森県", CentroidLat: 40.8244, CentroidLng: 140.7400},
	{Code: "03", Name: "iwate", NameJa: "岩手県", CentroidLat: 39.7036, CentroidLng: 141.1527},
	{Code: "04", Name: "miyagi", NameJa: "宮城県", CentroidLat: 38.2688, CentroidLng: 140.8721},
	{Code: "05", Name: "akita", NameJa: "秋田県", CentroidLat: 39.7186, CentroidLng: 140.1024},
	{Code: "06", Name: "yamagata", NameJa: "山形県", CentroidLat: 38.2404, CentroidLng: 140.3633},
	{Code: "07", Name: "fukushima", NameJa: "福島県", CentroidLat: 37.7500, CentroidLng: 140.4678},
	{Code: "08", Name: "ibaraki", NameJa: "茨城県", CentroidLat: 36.3418, CentroidLng: 140.4468},
	{Code: "09", Name: "tochigi", NameJa: "栃木県", CentroidLat: 36.5658, CentroidLng: 139.8836},
	{Code: "10", Name: "gunma", NameJa: "群馬県", CentroidLat: 36.3911, CentroidLng: 139.0608},
	{Code: "11", Name: "saitama", NameJa: "埼玉県", CentroidLat: 35.8570, CentroidLng: 139.6489},
	{Code: "12", Name: "chiba", NameJa: "千葉県", CentroidLat: 35.6047, CentroidLng: 140.1233},
	{Code: "13", Name: "tokyo", NameJa: "東京都", CentroidLat: 35.6895, CentroidLng: 139.6917},
	{Code: "14", Name: "kanagawa", NameJa: "神奈川県", CentroidLat: 35.4478, CentroidLng: 139.6425},
	{Code: "15", Name: "niigata", NameJa: "新潟県", CentroidLat: 37.9024, CentroidLng: 139.0236},
	{Code: "16", Name: "toyama", NameJa: "富山県", CentroidLat: 36.6953, CentroidLng: 137.2113},
	{Code: "17", Name: "ishikawa", NameJa: "石川県", CentroidLat: 36.5947, CentroidLng: 136.6256},
	{Code: "18", Name: "fukui", NameJa: "福井県", CentroidLat: 36.0652, CentroidLng: 136.2216},
	{Code: "19", Name: "yamanashi", NameJa: "山梨県", CentroidLat: 35.6642, CentroidLng: 138.5684},
	{Code: "20", Name: "nagano", NameJa: "長野県", CentroidLat: 36.6513, CentroidLng: 138.1810},
	{Code: "21", Name: "gifu", NameJa: "岐阜県", CentroidLat: 35.3912, CentroidLng: 136.7223},
	{Code: "22", Name: "shizuoka", NameJa: "静岡県", CentroidLat: 34.9769, CentroidLng: 138.3831},
	{Code: "23", Name: "aichi", NameJa: "愛知県", CentroidLat: 35.1802, CentroidLng: 136.9066},
	{Code: "24", Name: "mie", NameJa: "三重県", CentroidLat: 34.7303, CentroidLng: 136.5086},
	{Code: "25", Name: "shiga", NameJa: "滋賀県", CentroidLat: 35.0045, CentroidLng: 135.8686},
	{Code: "26", Name: "kyoto", NameJa: "京都府", CentroidLat: 35.0116, CentroidLng: 135.7681},
	{Code: "27", Name: "osaka", NameJa: "大阪府", CentroidLat: 34.6937, CentroidLng: 135.5023},
	{Code: "28", Name: "hyogo", NameJa: "兵庫県", CentroidLat: 34.6913, CentroidLng: 135.1830},
	{Code: "29", Name: "nara", NameJa: "奈良県", CentroidLat: 34.6851, CentroidLng: 135.8050},
	{Code: "30", Name: "wakayama", NameJa: "和歌山県", CentroidLat: 34.2261, CentroidLng: 135.1675},
	{Code: "31", Name: "tottori", NameJa: "鳥取県", CentroidLat: 35.5039, CentroidLng: 134.2377},
	{Code: "32", Name: "shimane", NameJa: "島根県", CentroidLat: 35.4723, CentroidLng: 133.0505},
	{Code: "33", Name: "okayama", NameJa: "岡山県", CentroidLat: 34.6618, CentroidLng: 133.9344},
	{Code: "34", Name: "hiroshima", NameJa: "広島県", CentroidLat: 34.3966, CentroidLng: 132.4596},
	{Code: "35", Name: "yamaguchi", NameJa: "山口県", CentroidLat: 34.1859, CentroidLng: 131.4714},
	{Code: "36", Name: "tokushima", NameJa: "徳島県", CentroidLat: 34.0658, CentroidLng: 134.5593},
	{Code: "37", Name: "kagawa", NameJa: "香川県", CentroidLat: 34.3401, CentroidLng: 134.0434},
	{Code: "38", Name: "ehime", NameJa: "愛媛県", CentroidLat: 33.8417, CentroidLng: 132.7661},
	{Code: "39", Name: "kochi", NameJa: "高知県", CentroidLat: 33.5597, CentroidLng: 133.5311},
	{Code: "40", Name: "fukuoka", NameJa: "福岡県", CentroidLat: 33.6064, CentroidLng: 130.4183},
	{Code: "41", Name: "saga", NameJa: "佐賀県", CentroidLat: 33.2494, CentroidLng: 130.2988},
	{Code: "42", Name: "nagasaki", NameJa: "長崎県", CentroidLat: 32.7448, CentroidLng: 129.8737},
	{Code: "43", Name: "kumamoto", NameJa: "熊本県", CentroidLat: 32.7898, CentroidLng: 130.7417},
	{Code: "44", Name: "oita", NameJa: "大分県", CentroidLat: 33.2382, CentroidLng: 131.6126},
	{Code: "45", Name: "miyazaki", NameJa: "宮崎県", CentroidLat: 31.9111, CentroidLng: 131.4239},
	{Code: "46", Name: "kagoshima", NameJa: "鹿児島県", CentroidLat: 31.5602, CentroidLng: 130.5581},
	{Code: "47", Name: "okinawa", NameJa: "沖縄県", CentroidLat: 26.2124, CentroidLng: 127.6809},
}

// GetPrefectureCodes returns all prefecture codes in JIS order.
func GetPrefectureCodes() []string {
	codes := make([]string, len(Prefectures))
	for i, p := range Prefectures {
		codes[i] = p.Code
	}
	return codes
}

// GetPrefectureByCode returns a prefecture by its two-digit code.
func GetPrefectureByCode(code string) *models.Region {
	for i := range Prefectures {
		if Prefectures[i].Code == code {
			return &Prefectures[i]
		}
	}
	return nil
}
