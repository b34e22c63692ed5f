package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"tenant_id",
			"customer_name",
			"customer_phone",
			"date",
			"start",
			"end",
			"starts_at",
			"ends_at",
			"items",
			"total_price",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"tenant_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"customer_phone": bson.M{
				"bsonType": "string",
				"pattern":  `^\+[1-9][0-9]{6,14}$`,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`,
			},

			"start": bson.M{
				"bsonType": "string",
				"pattern":  `^([01][0-9]|2[0-3]):[0-5][0-9]$`,
			},

			"end": bson.M{
				"bsonType": "string",
				"pattern":  `^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`,
			},

			"starts_at": bson.M{
				"bsonType": "date",
			},

			"ends_at": bson.M{
				"bsonType": "date",
			},

			"items": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"service_id", "name", "price", "duration_min"},
				},
			},

			"total_price": bson.M{
				"bsonType": "decimal",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"scheduled",
					"completed",
					"cancelled",
					"no-show",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
