package extract

// SelectorRule locates product items on a listing page. A scoped rule runs
// ItemSelector under every element matched by ContainerSelector; an unscoped
// rule runs ItemSelector against the whole document once any container
// exists.
type SelectorRule struct {
	Name              string
	ContainerSelector string
	ItemSelector      string
	Scoped            bool
}

// DefaultRules is the cascade in priority order. Cafe24 markup comes first
// because most Korean storefronts run on it.
var DefaultRules = []SelectorRule{
	{
		Name:              "cafe24-listnormal",
		ContainerSelector: ".xans-product-listnormal",
		ItemSelector:      "ul.prdList > li",
		Scoped:            true,
	},
	{
		Name:              "cafe24-prdlist",
		ContainerSelector: "ul.prdList",
		ItemSelector:      "ul.prdList > li",
		Scoped:            false,
	},
	classListRule("prd_list"),
	classListRule("product_list"),
	classListRule("goods_list"),
	classListRule("item_list"),
	{
		Name:              "product-list",
		ContainerSelector: `[class*="product-list"]`,
		ItemSelector:      `[class*="product-item"], [class*="product-card"]`,
		Scoped:            true,
	},
	{
		Name:              "productList",
		ContainerSelector: `[class*="productList"]`,
		ItemSelector:      `[class*="productItem"], [class*="productCard"]`,
		Scoped:            true,
	},
	{
		Name:              "goods-list",
		ContainerSelector: `[class*="goods-list"], [class*="goodsList"]`,
		ItemSelector:      `[class*="goods-item"], [class*="goodsItem"]`,
		Scoped:            true,
	},
	{
		Name:              "item-list",
		ContainerSelector: `[class*="item-list"], [class*="itemList"]`,
		ItemSelector:      `[class*="item-card"], [class*="itemCard"], li`,
		Scoped:            true,
	},
	{
		Name:              "product-wrap",
		ContainerSelector: `[class*="product_wrap"], [class*="productWrap"]`,
		ItemSelector:      `[class*="product_item"], [class*="productItem"], li`,
		Scoped:            true,
	},
}

// classListRule matches list items directly under a container class, with or
// without an inner ul.
func classListRule(class string) SelectorRule {
	return SelectorRule{
		Name:              class,
		ContainerSelector: "." + class,
		ItemSelector:      "." + class + " > li, ." + class + " > ul > li",
		Scoped:            true,
	}
}
