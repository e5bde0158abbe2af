package catalog

const priceFields = `
	gross {
		amount
		currency
	}`

const productSummaryFields = `
	id
	name
	slug
	description
	thumbnail {
		url
		alt
	}
	media {
		id
		url
		alt
		type
	}
	category {
		id
		name
		slug
	}
	pricing {
		priceRange {
			start {` + priceFields + `
			}
			stop {` + priceFields + `
			}
		}
	}
	variants {
		id
		name
		sku
		pricing {
			price {` + priceFields + `
			}
		}
		attributes {
			attribute {
				name
				slug
			}
			values {
				name
				slug
			}
		}
		media {
			id
			url
			alt
		}
	}`

const productListQuery = `
query ProductList($channel: String!, $first: Int) {
	products(channel: $channel, first: $first) {
		edges {
			node {` + productSummaryFields + `
			}
		}
	}
}`

const categoriesQuery = `
query Categories($first: Int) {
	categories(first: $first) {
		edges {
			node {
				id
				name
				slug
				description
				backgroundImage {
					url
					alt
				}
				children(first: 10) {
					edges {
						node {
							id
							name
							slug
						}
					}
				}
			}
		}
	}
}`

const collectionsQuery = `
query Collections($channel: String!, $first: Int) {
	collections(channel: $channel, first: $first) {
		edges {
			node {
				id
				name
				slug
				backgroundImage {
					url
					alt
				}
			}
		}
	}
}`

const featuredProductsQuery = `
query FeaturedProducts($channel: String!, $slug: String!) {
	collection(channel: $channel, slug: $slug) {
		id
		name
		products(first: 8) {
			edges {
				node {
					id
					name
					slug
					thumbnail {
						url
						alt
					}
					pricing {
						priceRange {
							start {` + priceFields + `
							}
						}
					}
				}
			}
		}
	}
}`

const productDetailQuery = `
query ProductDetail($slug: String!, $channel: String!) {
	product(slug: $slug, channel: $channel) {
		id
		name
		slug
		description
		seoTitle
		seoDescription
		thumbnail {
			url
			alt
		}
		media {
			id
			url
			alt
			type
		}
		category {
			id
			name
			slug
		}
		pricing {
			priceRange {
				start {` + priceFields + `
				}
				stop {` + priceFields + `
				}
			}
		}
		variants {
			id
			name
			sku
			quantityAvailable
			pricing {
				price {` + priceFields + `
				}
			}
			attributes {
				attribute {
					name
					slug
				}
				values {
					name
					slug
				}
			}
			media {
				id
				url
				alt
			}
		}
		attributes {
			attribute {
				name
				slug
			}
			values {
				name
				slug
			}
		}
	}
}`

const categoryBySlugQuery = `
query CategoryBySlug($slug: String!, $channel: String!, $first: Int) {
	category(slug: $slug) {
		id
		name
		slug
		description
		backgroundImage {
			url
			alt
		}
		children(first: 10) {
			edges {
				node {
					id
					name
					slug
				}
			}
		}
		products(channel: $channel, first: $first) {
			edges {
				node {` + productSummaryFields + `
				}
			}
		}
	}
}`

const collectionBySlugQuery = `
query CollectionBySlug($slug: String!, $channel: String!, $first: Int) {
	collection(slug: $slug, channel: $channel) {
		id
		name
		slug
		backgroundImage {
			url
			alt
		}
		products(first: $first) {
			edges {
				node {` + productSummaryFields + `
				}
			}
		}
	}
}`

const variantPricingQuery = `
query VariantPricing($ids: [ID!], $channel: String!, $first: Int) {
	productVariants(ids: $ids, channel: $channel, first: $first) {
		edges {
			node {
				id
				pricing {
					price {` + priceFields + `
					}
				}
			}
		}
	}
}`
