package postgres

// Queries target the Medusa v2 schema. Soft deleted rows are skipped
// everywhere and monetary totals come from the latest order summary.

const orderTotalExpr = `COALESCE(os.totals->'current_order_total', os.totals->'original_order_total', '0'::jsonb)`

const latestSummaryJoin = `
LEFT JOIN LATERAL (
	SELECT s.totals FROM order_summary s
	WHERE s.order_id = o.id AND s.deleted_at IS NULL
	ORDER BY s.version DESC
	LIMIT 1
) os ON true`

const orderSelect = `
SELECT o.id, o.display_id, o.status, COALESCE(o.email, ''), COALESCE(o.customer_id, ''),
	o.currency_code, COALESCE(o.region_id, ''), COALESCE(r.name, ''),
	COALESCE(o.sales_channel_id, ''), COALESCE(sc.name, ''),
	` + orderTotalExpr + `,
	COALESCE((
		SELECT SUM(a.amount) FROM order_line_item_adjustment a
		JOIN order_item oi ON oi.item_id = a.item_id AND oi.version = o.version
		WHERE oi.order_id = o.id AND a.deleted_at IS NULL
	), 0),
	o.created_at
FROM "order" o
LEFT JOIN region r ON r.id = o.region_id
LEFT JOIN sales_channel sc ON sc.id = o.sales_channel_id` + latestSummaryJoin

const listOrdersQuery = orderSelect + `
WHERE o.deleted_at IS NULL
	AND ($1::timestamptz IS NULL OR o.created_at >= $1)
	AND ($2::timestamptz IS NULL OR o.created_at <= $2)
	AND ($3::text[] IS NULL OR o.status = ANY($3))
ORDER BY o.created_at, o.id
LIMIT NULLIF($4::int, 0) OFFSET $5`

const getOrderQuery = orderSelect + `
WHERE o.deleted_at IS NULL AND o.id = $1`

const orderItemsQuery = `
SELECT oi.order_id, li.id, COALESCE(li.product_id, ''), COALESCE(li.variant_id, ''), li.title,
	COALESCE(li.product_title, ''), COALESCE(li.variant_title, ''), oi.quantity::int, li.unit_price
FROM order_item oi
JOIN "order" o ON o.id = oi.order_id AND oi.version = o.version
JOIN order_line_item li ON li.id = oi.item_id AND li.deleted_at IS NULL
WHERE oi.order_id = ANY($1) AND oi.deleted_at IS NULL
ORDER BY oi.order_id, li.id`

const orderTransactionsQuery = `
SELECT order_id, id, COALESCE(reference, ''), amount, created_at
FROM order_transaction
WHERE order_id = ANY($1) AND deleted_at IS NULL
ORDER BY order_id, created_at, id`

const orderPromotionsQuery = `
SELECT op.order_id, p.id, COALESCE(p.code, '')
FROM order_promotion op
JOIN promotion p ON p.id = op.promotion_id
WHERE op.order_id = ANY($1) AND op.deleted_at IS NULL
ORDER BY op.order_id, p.id`

const orderPaymentSessionsQuery = `
SELECT opc.order_id, opc.payment_collection_id, COALESCE(ps.id, ''), COALESCE(ps.provider_id, ''),
	COALESCE(ps.status, '')
FROM order_payment_collection opc
LEFT JOIN payment_session ps ON ps.payment_collection_id = opc.payment_collection_id
	AND ps.deleted_at IS NULL
WHERE opc.order_id = ANY($1) AND opc.deleted_at IS NULL
ORDER BY opc.order_id, opc.payment_collection_id, ps.created_at`

const orderPaymentsQuery = `
SELECT opc.order_id, opc.payment_collection_id, p.id, p.provider_id
FROM order_payment_collection opc
JOIN payment p ON p.payment_collection_id = opc.payment_collection_id AND p.deleted_at IS NULL
WHERE opc.order_id = ANY($1) AND opc.deleted_at IS NULL
ORDER BY opc.order_id, p.created_at`

const listCartsQuery = `
SELECT c.id, COALESCE(c.email, ''), COALESCE(c.customer_id, ''), COALESCE(c.metadata, '{}'::jsonb),
	c.completed_at, c.created_at, c.updated_at
FROM cart c
WHERE c.deleted_at IS NULL
	AND ($1::timestamptz IS NULL OR c.updated_at >= $1)
	AND ($2::timestamptz IS NULL OR c.updated_at <= $2)
ORDER BY c.updated_at, c.id`

const cartItemsQuery = `
SELECT cart_id, id, COALESCE(product_id, ''), COALESCE(variant_id, ''), title,
	COALESCE(product_title, ''), COALESCE(variant_title, ''), quantity::int, unit_price
FROM cart_line_item
WHERE cart_id = ANY($1) AND deleted_at IS NULL
ORDER BY cart_id, id`

const customerSelect = `
SELECT c.id, COALESCE(c.email, ''), COALESCE(c.first_name, ''), COALESCE(c.last_name, ''),
	c.has_account, COALESCE(c.metadata, '{}'::jsonb), c.created_at
FROM customer c`

const listCustomersQuery = customerSelect + `
WHERE c.deleted_at IS NULL
	AND ($1::timestamptz IS NULL OR c.created_at >= $1)
	AND ($2::timestamptz IS NULL OR c.created_at <= $2)
ORDER BY c.created_at, c.id
LIMIT NULLIF($3::int, 0) OFFSET $4`

const getCustomerQuery = customerSelect + `
WHERE c.deleted_at IS NULL AND c.id = $1`

const customerOrdersQuery = `
SELECT o.customer_id, o.id, ` + orderTotalExpr + `, o.created_at
FROM "order" o` + latestSummaryJoin + `
WHERE o.customer_id = ANY($1) AND o.deleted_at IS NULL
ORDER BY o.customer_id, o.created_at, o.id`

const productSelect = `
SELECT p.id, p.title, COALESCE(p.handle, ''), p.status, p.created_at
FROM product p`

const listProductsQuery = productSelect + `
WHERE p.deleted_at IS NULL
	AND ($1 = '' OR p.title ILIKE '%' || $1 || '%' OR p.handle ILIKE '%' || $1 || '%')
ORDER BY p.created_at, p.id
LIMIT NULLIF($2::int, 0) OFFSET $3`

const getProductQuery = productSelect + `
WHERE p.deleted_at IS NULL AND p.id = $1`

const productVariantsQuery = `
SELECT v.product_id, v.id, v.title, COALESCE(v.sku, ''), v.manage_inventory,
	COALESCE((
		SELECT SUM(il.stocked_quantity - il.reserved_quantity)
		FROM product_variant_inventory_item pvi
		JOIN inventory_level il ON il.inventory_item_id = pvi.inventory_item_id AND il.deleted_at IS NULL
		WHERE pvi.variant_id = v.id AND pvi.deleted_at IS NULL
	), 0)::int
FROM product_variant v
WHERE v.product_id = ANY($1) AND v.deleted_at IS NULL
ORDER BY v.product_id, v.variant_rank, v.id`
