package seeders

type zoneSeed struct {
	Name string
	Code string
}

type depotSeed struct {
	Name     string
	Code     string
	ZoneCode string
}

type userSeed struct {
	FIO   string
	Email string
}

var zonesData = []zoneSeed{
	{Name: "Северная зона", Code: "NORTH"},
	{Name: "Южная зона", Code: "SOUTH"},
	{Name: "Центральная зона", Code: "CENTER"},
}

var depotsData = []depotSeed{
	{Name: "Депо Худжанд", Code: "KHJ-01", ZoneCode: "NORTH"},
	{Name: "Депо Истаравшан", Code: "IST-01", ZoneCode: "NORTH"},
	{Name: "Депо Бохтар", Code: "BKH-01", ZoneCode: "SOUTH"},
	{Name: "Депо Кулоб", Code: "KUL-01", ZoneCode: "SOUTH"},
	{Name: "Депо Душанбе", Code: "DYU-01", ZoneCode: "CENTER"},
}

var usersData = []userSeed{
	{FIO: "Администратор Системы", Email: "admin@sfa.local"},
	{FIO: "Рахимов Алишер", Email: "a.rakhimov@sfa.local"},
	{FIO: "Саидова Нигина", Email: "n.saidova@sfa.local"},
	{FIO: "Назаров Фаррух", Email: "f.nazarov@sfa.local"},
	{FIO: "Каримова Зарина", Email: "z.karimova@sfa.local"},
}

// demoChains - стартовые цепочки по email согласующих. Пустой ZoneCode - глобальная цепочка.
var demoChains = []struct {
	RequestType string
	ZoneCode    string
	Approvers   []string
}{
	{RequestType: "ORDER_APPROVAL", Approvers: []string{"a.rakhimov@sfa.local", "n.saidova@sfa.local"}},
	{RequestType: "ORDER_APPROVAL", ZoneCode: "NORTH", Approvers: []string{"f.nazarov@sfa.local", "a.rakhimov@sfa.local"}},
	{RequestType: "ASSET_MOVEMENT", Approvers: []string{"z.karimova@sfa.local"}},
}
